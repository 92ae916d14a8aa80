package utils

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeNetCDF(t *testing.T) {
	red := NewRaster(DTypeInt16, 3, 2, -9999, "red")
	for i := 0; i < 6; i++ {
		SetSample(red, i, float64(200+i))
	}

	data, err := EncodeNetCDF([]Raster{red}, [4]float64{120, -30, 123, -28}, 4326)
	if err != nil {
		t.Errorf("encoding failed: %v", err)
		return
	}

	if string(data[:4]) != "CDF\x01" {
		t.Errorf("bad magic %q", data[:4])
		return
	}

	// data sections from the end of the file: lat(2 doubles),
	// lon(3 doubles), red(6 shorts)
	latSize := int(ncVSize(ncDouble, 2))
	lonSize := int(ncVSize(ncDouble, 3))
	bandSize := int(ncVSize(ncShort, 6))
	headerLen := len(data) - latSize - lonSize - bandSize
	if headerLen <= 8 {
		t.Errorf("file too short: %d bytes", len(data))
		return
	}

	lat0 := math.Float64frombits(binary.BigEndian.Uint64(data[headerLen : headerLen+8]))
	if math.Abs(lat0-(-28.5)) > 1e-9 {
		t.Errorf("expected first latitude centre -28.5, got %v", lat0)
	}
	lat1 := math.Float64frombits(binary.BigEndian.Uint64(data[headerLen+8 : headerLen+16]))
	if lat1 >= lat0 {
		t.Errorf("latitudes must descend, got %v then %v", lat0, lat1)
	}
	lonBase := headerLen + latSize
	lon0 := math.Float64frombits(binary.BigEndian.Uint64(data[lonBase : lonBase+8]))
	if math.Abs(lon0-120.5) > 1e-9 {
		t.Errorf("expected first longitude centre 120.5, got %v", lon0)
	}

	bandBase := headerLen + latSize + lonSize
	for i := 0; i < 6; i++ {
		v := int16(binary.BigEndian.Uint16(data[bandBase+i*2 : bandBase+i*2+2]))
		if v != int16(200+i) {
			t.Errorf("pixel %d: expected %d, got %d", i, 200+i, v)
		}
	}

	for _, name := range []string{"latitude", "longitude", "red", "_FillValue", "CF-1.6", "EPSG:4326"} {
		if !bytes.Contains(data[:headerLen], []byte(name)) {
			t.Errorf("header is missing %q", name)
		}
	}
}

func TestEncodeNetCDFWidensUnsigned(t *testing.T) {
	// classic format has no unsigned 16 bit type
	if dtypeNCType(DTypeUInt16) != ncInt {
		t.Errorf("UInt16 must widen to NC_INT")
	}
	if dtypeNCType(DTypeByte) != ncShort {
		t.Errorf("Byte must widen to NC_SHORT")
	}
	if dtypeNCType(DTypeFloat32) != ncFloat {
		t.Errorf("Float32 must map to NC_FLOAT")
	}
}

package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Minimal netCDF classic (CDF-1) writer. The layout is a CF style
// grid with descending latitude and ascending longitude cell centre
// coordinate variables and one variable per band carrying a
// _FillValue attribute. Everything in the classic format is big
// endian.

const (
	ncByte   = 1
	ncChar   = 2
	ncShort  = 3
	ncInt    = 4
	ncFloat  = 5
	ncDouble = 6
)

var ncTypeSizes = map[int]int{
	ncByte:   1,
	ncChar:   1,
	ncShort:  2,
	ncInt:    4,
	ncFloat:  4,
	ncDouble: 8,
}

// netCDF has no unsigned types in classic format, so narrow integer
// bands widen to the next signed type.
func dtypeNCType(dtype string) int {
	switch dtype {
	case DTypeUInt16:
		return ncInt
	case DTypeInt16:
		return ncShort
	case DTypeFloat32:
		return ncFloat
	default:
		return ncShort
	}
}

type ncAttr struct {
	name   string
	ncType int
	values []float64
	text   string
}

type ncVar struct {
	name   string
	dimIDs []int
	ncType int
	attrs  []ncAttr
	vsize  uint32
}

func ncPad(buf *bytes.Buffer) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

func ncWriteName(buf *bytes.Buffer, name string) {
	binary.Write(buf, binary.BigEndian, uint32(len(name)))
	buf.WriteString(name)
	ncPad(buf)
}

func ncWriteValues(buf *bytes.Buffer, ncType int, values []float64) {
	for _, v := range values {
		switch ncType {
		case ncByte:
			buf.WriteByte(byte(int8(v)))
		case ncShort:
			binary.Write(buf, binary.BigEndian, int16(v))
		case ncInt:
			binary.Write(buf, binary.BigEndian, int32(v))
		case ncFloat:
			binary.Write(buf, binary.BigEndian, float32(v))
		case ncDouble:
			binary.Write(buf, binary.BigEndian, v)
		}
	}
	ncPad(buf)
}

func ncWriteAttrList(buf *bytes.Buffer, attrs []ncAttr) {
	if len(attrs) == 0 {
		binary.Write(buf, binary.BigEndian, uint32(0))
		binary.Write(buf, binary.BigEndian, uint32(0))
		return
	}
	binary.Write(buf, binary.BigEndian, uint32(0x0C)) // NC_ATTRIBUTE
	binary.Write(buf, binary.BigEndian, uint32(len(attrs)))
	for _, a := range attrs {
		ncWriteName(buf, a.name)
		binary.Write(buf, binary.BigEndian, uint32(a.ncType))
		if a.ncType == ncChar {
			binary.Write(buf, binary.BigEndian, uint32(len(a.text)))
			buf.WriteString(a.text)
			ncPad(buf)
			continue
		}
		binary.Write(buf, binary.BigEndian, uint32(len(a.values)))
		ncWriteValues(buf, a.ncType, a.values)
	}
}

func ncVSize(ncType int, nelems int) uint32 {
	size := nelems * ncTypeSizes[ncType]
	if size%4 != 0 {
		size += 4 - size%4
	}
	return uint32(size)
}

// EncodeNetCDF serialises the bands into one netCDF classic file.
// bbox is [minLon, minLat, maxLon, maxLat] in the CRS named by epsg.
func EncodeNetCDF(rasters []Raster, bbox [4]float64, epsg int) ([]byte, error) {
	if len(rasters) == 0 {
		return nil, fmt.Errorf("no rasters to encode")
	}
	width, height := rasters[0].GetShape()
	for _, r := range rasters {
		w, h := r.GetShape()
		if w != width || h != height {
			return nil, fmt.Errorf("raster shapes differ: %dx%d vs %dx%d", w, h, width, height)
		}
	}

	resX := (bbox[2] - bbox[0]) / float64(width)
	resY := (bbox[3] - bbox[1]) / float64(height)

	lats := make([]float64, height)
	for i := range lats {
		lats[i] = bbox[3] - resY*(float64(i)+0.5)
	}
	lons := make([]float64, width)
	for j := range lons {
		lons[j] = bbox[0] + resX*(float64(j)+0.5)
	}

	dimNames := []string{"latitude", "longitude"}
	dimLens := []int{height, width}

	vars := []ncVar{
		{
			name: "latitude", dimIDs: []int{0}, ncType: ncDouble,
			attrs: []ncAttr{
				{name: "standard_name", ncType: ncChar, text: "latitude"},
				{name: "units", ncType: ncChar, text: "degrees_north"},
			},
			vsize: ncVSize(ncDouble, height),
		},
		{
			name: "longitude", dimIDs: []int{1}, ncType: ncDouble,
			attrs: []ncAttr{
				{name: "standard_name", ncType: ncChar, text: "longitude"},
				{name: "units", ncType: ncChar, text: "degrees_east"},
			},
			vsize: ncVSize(ncDouble, width),
		},
	}
	for _, r := range rasters {
		ncType := dtypeNCType(r.GetDType())
		vars = append(vars, ncVar{
			name: r.GetNameSpace(), dimIDs: []int{0, 1}, ncType: ncType,
			attrs: []ncAttr{
				{name: "_FillValue", ncType: ncType, values: []float64{r.GetNoData()}},
				{name: "grid_mapping", ncType: ncChar, text: "crs"},
			},
			vsize: ncVSize(ncType, width*height),
		})
	}

	globalAttrs := []ncAttr{
		{name: "Conventions", ncType: ncChar, text: "CF-1.6"},
		{name: "crs", ncType: ncChar, text: fmt.Sprintf("EPSG:%d", epsg)},
	}

	writeHeader := func(begins []uint32) []byte {
		buf := new(bytes.Buffer)
		buf.WriteString("CDF\x01")
		binary.Write(buf, binary.BigEndian, uint32(0)) // numrecs

		binary.Write(buf, binary.BigEndian, uint32(0x0A)) // NC_DIMENSION
		binary.Write(buf, binary.BigEndian, uint32(len(dimNames)))
		for i, name := range dimNames {
			ncWriteName(buf, name)
			binary.Write(buf, binary.BigEndian, uint32(dimLens[i]))
		}

		ncWriteAttrList(buf, globalAttrs)

		binary.Write(buf, binary.BigEndian, uint32(0x0B)) // NC_VARIABLE
		binary.Write(buf, binary.BigEndian, uint32(len(vars)))
		for i, v := range vars {
			ncWriteName(buf, v.name)
			binary.Write(buf, binary.BigEndian, uint32(len(v.dimIDs)))
			for _, id := range v.dimIDs {
				binary.Write(buf, binary.BigEndian, uint32(id))
			}
			ncWriteAttrList(buf, v.attrs)
			binary.Write(buf, binary.BigEndian, uint32(v.ncType))
			binary.Write(buf, binary.BigEndian, v.vsize)
			binary.Write(buf, binary.BigEndian, begins[i])
		}
		return buf.Bytes()
	}

	// header length does not depend on the begin values, so measure
	// with zeros first
	begins := make([]uint32, len(vars))
	headerLen := uint32(len(writeHeader(begins)))
	offset := headerLen
	for i, v := range vars {
		begins[i] = offset
		offset += v.vsize
	}

	out := new(bytes.Buffer)
	out.Write(writeHeader(begins))

	coordData := new(bytes.Buffer)
	ncWriteValues(coordData, ncDouble, lats)
	ncWriteValues(coordData, ncDouble, lons)
	out.Write(coordData.Bytes())

	for _, r := range rasters {
		ncType := dtypeNCType(r.GetDType())
		band := new(bytes.Buffer)
		vals := make([]float64, width*height)
		for i := range vals {
			vals[i], _ = r.Sample(i)
		}
		ncWriteValues(band, ncType, vals)
		out.Write(band.Bytes())
	}
	return out.Bytes(), nil
}

package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Minimal GeoTIFF writer. The output is an uncompressed band
// sequential (planar configuration 2) TIFF 6.0 with one strip per
// band, geolocated through ModelPixelScale, ModelTiepoint and a
// GeoKey directory carrying the geographic CRS code. The per-band
// no-data value travels in the GDAL_NODATA ASCII tag.

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

const (
	tiffTypeASCII  = 2
	tiffTypeShort  = 3
	tiffTypeLong   = 4
	tiffTypeDouble = 12
)

var tiffTypeSizes = map[uint16]uint32{
	tiffTypeASCII:  1,
	tiffTypeShort:  2,
	tiffTypeLong:   4,
	tiffTypeDouble: 8,
}

type tiffField struct {
	tag   uint16
	ftype uint16
	count uint32
	value []byte
}

func shortsField(tag uint16, values ...uint16) tiffField {
	buf := new(bytes.Buffer)
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return tiffField{tag: tag, ftype: tiffTypeShort, count: uint32(len(values)), value: buf.Bytes()}
}

func longsField(tag uint16, values ...uint32) tiffField {
	buf := new(bytes.Buffer)
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return tiffField{tag: tag, ftype: tiffTypeLong, count: uint32(len(values)), value: buf.Bytes()}
}

func doublesField(tag uint16, values ...float64) tiffField {
	buf := new(bytes.Buffer)
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return tiffField{tag: tag, ftype: tiffTypeDouble, count: uint32(len(values)), value: buf.Bytes()}
}

func asciiField(tag uint16, value string) tiffField {
	data := append([]byte(value), 0)
	return tiffField{tag: tag, ftype: tiffTypeASCII, count: uint32(len(data)), value: data}
}

func dtypeTIFFInfo(dtype string) (bits uint16, sampleFormat uint16, size int) {
	switch dtype {
	case DTypeUInt16:
		return 16, 1, 2
	case DTypeInt16:
		return 16, 2, 2
	case DTypeFloat32:
		return 32, 3, 4
	default:
		return 8, 1, 1
	}
}

func bandBytes(r Raster, dtype string, npix int) []byte {
	buf := new(bytes.Buffer)
	switch dtype {
	case DTypeUInt16:
		for i := 0; i < npix; i++ {
			v, _ := r.Sample(i)
			binary.Write(buf, binary.LittleEndian, uint16(v))
		}
	case DTypeInt16:
		for i := 0; i < npix; i++ {
			v, _ := r.Sample(i)
			binary.Write(buf, binary.LittleEndian, int16(v))
		}
	case DTypeFloat32:
		for i := 0; i < npix; i++ {
			v, _ := r.Sample(i)
			binary.Write(buf, binary.LittleEndian, float32(v))
		}
	default:
		for i := 0; i < npix; i++ {
			v, _ := r.Sample(i)
			buf.WriteByte(uint8(v))
		}
	}
	return buf.Bytes()
}

// EncodeGeoTIFF serialises the bands into one multi-band GeoTIFF.
// Bands of mixed dtypes are promoted to the widest dtype present.
// bbox is [minLon, minLat, maxLon, maxLat] in the CRS named by epsg.
func EncodeGeoTIFF(rasters []Raster, bbox [4]float64, epsg int) ([]byte, error) {
	if len(rasters) == 0 {
		return nil, fmt.Errorf("no rasters to encode")
	}
	width, height := rasters[0].GetShape()
	dtype := rasters[0].GetDType()
	for _, r := range rasters {
		w, h := r.GetShape()
		if w != width || h != height {
			return nil, fmt.Errorf("raster shapes differ: %dx%d vs %dx%d", w, h, width, height)
		}
		dtype = PromoteDType(dtype, r.GetDType())
	}

	nBands := len(rasters)
	bits, sampleFormat, size := dtypeTIFFInfo(dtype)
	npix := width * height
	bandSize := npix * size

	resX := (bbox[2] - bbox[0]) / float64(width)
	resY := (bbox[3] - bbox[1]) / float64(height)

	geoKeys := []uint16{
		1, 1, 0, 3,
		1024, 0, 1, 2, // geographic model
		1025, 0, 1, 1, // pixel is area
		2048, 0, 1, uint16(epsg),
	}

	bitsArr := make([]uint16, nBands)
	fmtArr := make([]uint16, nBands)
	for i := range bitsArr {
		bitsArr[i] = bits
		fmtArr[i] = sampleFormat
	}

	fields := []tiffField{
		longsField(tagImageWidth, uint32(width)),
		longsField(tagImageLength, uint32(height)),
		shortsField(tagBitsPerSample, bitsArr...),
		shortsField(tagCompression, 1),
		shortsField(tagPhotometric, 1),
		longsField(tagStripOffsets, make([]uint32, nBands)...),
		shortsField(tagSamplesPerPixel, uint16(nBands)),
		longsField(tagRowsPerStrip, uint32(height)),
		longsField(tagStripByteCounts, repeatUint32(uint32(bandSize), nBands)...),
		shortsField(tagPlanarConfig, 2),
		shortsField(tagSampleFormat, fmtArr...),
		doublesField(tagModelPixelScale, resX, resY, 0),
		doublesField(tagModelTiepoint, 0, 0, 0, bbox[0], bbox[3], 0),
		shortsField(tagGeoKeyDirectory, geoKeys...),
		asciiField(tagGDALNoData, fmt.Sprintf("%g", rasters[0].GetNoData())),
	}

	// layout: header, IFD, out-of-line field values, pixel strips
	ifdOffset := uint32(8)
	ifdSize := uint32(2 + len(fields)*12 + 4)
	auxOffset := ifdOffset + ifdSize

	offset := auxOffset
	fieldOffsets := make([]uint32, len(fields))
	for i, f := range fields {
		byteLen := f.count * tiffTypeSizes[f.ftype]
		if byteLen <= 4 {
			continue
		}
		if offset%2 == 1 {
			offset++
		}
		fieldOffsets[i] = offset
		offset += byteLen
	}
	if offset%2 == 1 {
		offset++
	}
	dataOffset := offset

	stripOffsets := make([]uint32, nBands)
	for i := range stripOffsets {
		stripOffsets[i] = dataOffset + uint32(i*bandSize)
	}
	for i, f := range fields {
		if f.tag == tagStripOffsets {
			fields[i] = longsField(tagStripOffsets, stripOffsets...)
		}
	}

	out := new(bytes.Buffer)
	out.WriteString("II")
	binary.Write(out, binary.LittleEndian, uint16(42))
	binary.Write(out, binary.LittleEndian, ifdOffset)

	binary.Write(out, binary.LittleEndian, uint16(len(fields)))
	for i, f := range fields {
		binary.Write(out, binary.LittleEndian, f.tag)
		binary.Write(out, binary.LittleEndian, f.ftype)
		binary.Write(out, binary.LittleEndian, f.count)
		byteLen := f.count * tiffTypeSizes[f.ftype]
		if byteLen <= 4 {
			padded := make([]byte, 4)
			copy(padded, f.value)
			out.Write(padded)
		} else {
			binary.Write(out, binary.LittleEndian, fieldOffsets[i])
		}
	}
	binary.Write(out, binary.LittleEndian, uint32(0)) // no next IFD

	for i, f := range fields {
		byteLen := f.count * tiffTypeSizes[f.ftype]
		if byteLen <= 4 {
			continue
		}
		for uint32(out.Len()) < fieldOffsets[i] {
			out.WriteByte(0)
		}
		out.Write(f.value)
	}
	for uint32(out.Len()) < dataOffset {
		out.WriteByte(0)
	}

	for _, r := range rasters {
		out.Write(bandBytes(r, dtype, npix))
	}

	return out.Bytes(), nil
}

func repeatUint32(v uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

package utils

// Raster data types as named by the coverage index. The ordering in
// PromoteDType reflects how mixed-band outputs widen.
const (
	DTypeByte    = "Byte"
	DTypeUInt16  = "UInt16"
	DTypeInt16   = "Int16"
	DTypeFloat32 = "Float32"
)

// Raster is one band of decoded pixels.
type Raster interface {
	GetNoData() float64
	GetDType() string
	GetShape() (width, height int)
	GetNameSpace() string
	Sample(idx int) (value float64, valid bool)
}

type ByteRaster struct {
	Data          []uint8
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (br *ByteRaster) GetNoData() float64 { return br.NoData }
func (br *ByteRaster) GetDType() string { return DTypeByte }
func (br *ByteRaster) GetShape() (int, int) { return br.Width, br.Height }
func (br *ByteRaster) GetNameSpace() string { return br.NameSpace }
func (br *ByteRaster) Sample(idx int) (float64, bool) {
	val := float64(br.Data[idx])
	return val, val != br.NoData
}

type UInt16Raster struct {
	Data          []uint16
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (u16 *UInt16Raster) GetNoData() float64 { return u16.NoData }
func (u16 *UInt16Raster) GetDType() string { return DTypeUInt16 }
func (u16 *UInt16Raster) GetShape() (int, int) { return u16.Width, u16.Height }
func (u16 *UInt16Raster) GetNameSpace() string { return u16.NameSpace }
func (u16 *UInt16Raster) Sample(idx int) (float64, bool) {
	val := float64(u16.Data[idx])
	return val, val != u16.NoData
}

type Int16Raster struct {
	Data          []int16
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (s16 *Int16Raster) GetNoData() float64 { return s16.NoData }
func (s16 *Int16Raster) GetDType() string { return DTypeInt16 }
func (s16 *Int16Raster) GetShape() (int, int) { return s16.Width, s16.Height }
func (s16 *Int16Raster) GetNameSpace() string { return s16.NameSpace }
func (s16 *Int16Raster) Sample(idx int) (float64, bool) {
	val := float64(s16.Data[idx])
	return val, val != s16.NoData
}

type Float32Raster struct {
	Data          []float32
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (f32 *Float32Raster) GetNoData() float64 { return f32.NoData }
func (f32 *Float32Raster) GetDType() string { return DTypeFloat32 }
func (f32 *Float32Raster) GetShape() (int, int) { return f32.Width, f32.Height }
func (f32 *Float32Raster) GetNameSpace() string { return f32.NameSpace }
func (f32 *Float32Raster) Sample(idx int) (float64, bool) {
	val := float64(f32.Data[idx])
	return val, val != f32.NoData
}

// NewRaster allocates a raster of the given dtype with every pixel
// set to the no-data value.
func NewRaster(dtype string, width, height int, noData float64, nameSpace string) Raster {
	size := width * height
	switch dtype {
	case DTypeUInt16:
		data := make([]uint16, size)
		for i := range data {
			data[i] = uint16(noData)
		}
		return &UInt16Raster{Data: data, Width: width, Height: height, NoData: noData, NameSpace: nameSpace}
	case DTypeInt16:
		data := make([]int16, size)
		for i := range data {
			data[i] = int16(noData)
		}
		return &Int16Raster{Data: data, Width: width, Height: height, NoData: noData, NameSpace: nameSpace}
	case DTypeFloat32:
		data := make([]float32, size)
		for i := range data {
			data[i] = float32(noData)
		}
		return &Float32Raster{Data: data, Width: width, Height: height, NoData: noData, NameSpace: nameSpace}
	default:
		data := make([]uint8, size)
		for i := range data {
			data[i] = uint8(noData)
		}
		return &ByteRaster{Data: data, Width: width, Height: height, NoData: noData, NameSpace: nameSpace}
	}
}

// SetSample writes one pixel, truncating towards the raster's dtype.
func SetSample(r Raster, idx int, value float64) {
	switch ras := r.(type) {
	case *ByteRaster:
		ras.Data[idx] = uint8(value)
	case *UInt16Raster:
		ras.Data[idx] = uint16(value)
	case *Int16Raster:
		ras.Data[idx] = int16(value)
	case *Float32Raster:
		ras.Data[idx] = float32(value)
	}
}

var dtypeRank = map[string]int{
	DTypeByte:    0,
	DTypeUInt16:  1,
	DTypeInt16:   2,
	DTypeFloat32: 3,
}

// PromoteDType picks the narrowest dtype able to represent both
// arguments.
func PromoteDType(a, b string) string {
	if dtypeRank[b] > dtypeRank[a] {
		return b
	}
	return a
}

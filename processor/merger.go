package processor

import (
	"fmt"
	"log"
	"reflect"
	"sort"
	"unsafe"

	"github.com/opendatacube/datacube-wcs/catalog"
	"github.com/opendatacube/datacube-wcs/utils"
)

const SizeofUint16 = 2
const SizeofInt16 = 2
const SizeofFloat32 = 4

type RasterMerger struct {
	In       chan *MergeTask
	Out      chan []utils.Raster
	Error    chan error
	TimeMean bool
}

func NewRasterMerger(timeMean bool, errChan chan error) *RasterMerger {
	return &RasterMerger{
		In:       make(chan *MergeTask, 100),
		Out:      make(chan []utils.Raster, 100),
		Error:    errChan,
		TimeMean: timeMean,
	}
}

func decodeSlice(sl *RawSlice, size int) ([]float64, []bool, error) {
	values := make([]float64, size)
	valid := make([]bool, size)

	switch sl.RasterType {
	case utils.DTypeByte:
		if len(sl.Data) != size {
			return nil, nil, fmt.Errorf("slice %s has %d bytes, expected %d", sl.NameSpace, len(sl.Data), size)
		}
		nodata := uint8(sl.NoData)
		for i, val := range sl.Data {
			values[i] = float64(val)
			valid[i] = val != nodata
		}
	case utils.DTypeInt16:
		if len(sl.Data) != size*SizeofInt16 {
			return nil, nil, fmt.Errorf("slice %s has %d bytes, expected %d", sl.NameSpace, len(sl.Data), size*SizeofInt16)
		}
		header := *(*reflect.SliceHeader)(unsafe.Pointer(&sl.Data))
		header.Len /= SizeofInt16
		header.Cap /= SizeofInt16
		data := *(*[]int16)(unsafe.Pointer(&header))
		nodata := int16(sl.NoData)
		for i, val := range data {
			values[i] = float64(val)
			valid[i] = val != nodata
		}
	case utils.DTypeUInt16:
		if len(sl.Data) != size*SizeofUint16 {
			return nil, nil, fmt.Errorf("slice %s has %d bytes, expected %d", sl.NameSpace, len(sl.Data), size*SizeofUint16)
		}
		header := *(*reflect.SliceHeader)(unsafe.Pointer(&sl.Data))
		header.Len /= SizeofUint16
		header.Cap /= SizeofUint16
		data := *(*[]uint16)(unsafe.Pointer(&header))
		nodata := uint16(sl.NoData)
		for i, val := range data {
			values[i] = float64(val)
			valid[i] = val != nodata
		}
	case utils.DTypeFloat32:
		if len(sl.Data) != size*SizeofFloat32 {
			return nil, nil, fmt.Errorf("slice %s has %d bytes, expected %d", sl.NameSpace, len(sl.Data), size*SizeofFloat32)
		}
		header := *(*reflect.SliceHeader)(unsafe.Pointer(&sl.Data))
		header.Len /= SizeofFloat32
		header.Cap /= SizeofFloat32
		data := *(*[]float32)(unsafe.Pointer(&header))
		nodata := float32(sl.NoData)
		for i, val := range data {
			values[i] = float64(val)
			valid[i] = val != nodata
		}
	default:
		return nil, nil, fmt.Errorf("unsupported raster type %s", sl.RasterType)
	}
	return values, valid, nil
}

// mergeNameSpace flattens all acquisitions of one band into a single
// canvas. With TimeMean overlapping valid pixels are averaged with
// no-data pixels skipped, otherwise the most recent valid pixel wins.
func (rm *RasterMerger) mergeNameSpace(slices []*RawSlice, size int) ([]float64, []bool, error) {
	canvas := make([]float64, size)
	valid := make([]bool, size)

	sort.SliceStable(slices, func(i, j int) bool { return slices[i].TimeStamp.Before(slices[j].TimeStamp) })

	if rm.TimeMean {
		counts := make([]int, size)
		for _, sl := range slices {
			values, ok, err := decodeSlice(sl, size)
			if err != nil {
				return nil, nil, err
			}
			for i := range values {
				if ok[i] {
					canvas[i] += values[i]
					counts[i]++
				}
			}
		}
		for i := range canvas {
			if counts[i] > 0 {
				canvas[i] /= float64(counts[i])
				valid[i] = true
			}
		}
		return canvas, valid, nil
	}

	for _, sl := range slices {
		values, ok, err := decodeSlice(sl, size)
		if err != nil {
			return nil, nil, err
		}
		for i := range values {
			if ok[i] {
				canvas[i] = values[i]
				valid[i] = true
			}
		}
	}
	return canvas, valid, nil
}

func measurementByName(measurements []catalog.Measurement, name string) (catalog.Measurement, bool) {
	for _, m := range measurements {
		if m.Name == name {
			return m, true
		}
	}
	return catalog.Measurement{}, false
}

func (rm *RasterMerger) mergeTask(task *MergeTask) ([]utils.Raster, error) {
	params := task.Request.Params
	size := params.Width * params.Height
	bandExpr := params.BandExpr

	bySpace := make(map[string][]*RawSlice)
	for _, sl := range task.Slices {
		bySpace[sl.NameSpace] = append(bySpace[sl.NameSpace], sl)
	}

	canvases := make(map[string][]float64)
	valids := make(map[string][]bool)
	for _, ns := range bandExpr.VarList {
		// a band with no acquisitions in the requested window
		// stays all no-data
		canvas, valid, err := rm.mergeNameSpace(bySpace[ns], size)
		if err != nil {
			return nil, err
		}
		canvases[ns] = canvas
		valids[ns] = valid
	}

	outRasters := make([]utils.Raster, len(bandExpr.Expressions))
	for iExpr, expr := range bandExpr.Expressions {
		name := bandExpr.ExprNames[iExpr]
		varRef := bandExpr.ExprVarRef[iExpr]

		m, isIdentity := measurementByName(params.Measurements, name)
		if isIdentity && bandExpr.ExprText[iExpr] != name {
			isIdentity = false
		}

		dtype := utils.DTypeFloat32
		noData := -9999.0
		if isIdentity {
			dtype = m.DType
			noData = m.NullValue
		} else if len(varRef) > 0 {
			if ref, found := measurementByName(params.Measurements, varRef[0]); found {
				noData = ref.NullValue
			}
		}

		out := utils.NewRaster(dtype, params.Width, params.Height, noData, name)

		if isIdentity {
			canvas := canvases[name]
			valid := valids[name]
			for i := range canvas {
				if valid[i] {
					utils.SetSample(out, i, canvas[i])
				}
			}
			outRasters[iExpr] = out
			continue
		}

		parameters := make(map[string]interface{}, len(varRef))
		for i := 0; i < size; i++ {
			allValid := true
			for _, ns := range varRef {
				if !valids[ns][i] {
					allValid = false
					break
				}
			}
			if !allValid {
				continue
			}
			for _, ns := range varRef {
				parameters[ns] = canvases[ns][i]
			}
			result, err := expr.Evaluate(parameters)
			if err != nil {
				return nil, fmt.Errorf("expression %s: %v", bandExpr.ExprText[iExpr], err)
			}
			// the edisonguo/govaluate fork evaluates arithmetic in float32
			var val float64
			switch v := result.(type) {
			case float32:
				val = float64(v)
			case float64:
				val = v
			default:
				return nil, fmt.Errorf("expression %s does not evaluate to a number", bandExpr.ExprText[iExpr])
			}
			utils.SetSample(out, i, val)
		}
		outRasters[iExpr] = out
	}
	return outRasters, nil
}

func (rm *RasterMerger) Run(verbose bool) {
	if verbose {
		defer log.Printf("raster merger done")
	}
	defer close(rm.Out)

	for task := range rm.In {
		rasters, err := rm.mergeTask(task)
		if err != nil {
			rm.Error <- err
			return
		}
		rm.Out <- rasters
	}
}

package processor

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context"
	"google.golang.org/grpc"

	"github.com/opendatacube/datacube-wcs/utils"
	pb "github.com/opendatacube/datacube-wcs/worker/rasterservice"
)

// Point time selections widen by one second either side so that
// acquisitions indexed with sub-second offsets still match.
const acquisitionPadding = time.Second

type RasterSubsetGRPC struct {
	Context            context.Context
	In                 chan *GeoSubsetRequest
	Out                chan *MergeTask
	Error              chan error
	Clients            []string
	MaxGrpcRecvMsgSize int
	GrpcConcLimit      int
}

func NewRasterSubsetGRPC(ctx context.Context, serverAddress []string, maxGrpcRecvMsgSize int, concLimit int, errChan chan error) *RasterSubsetGRPC {
	return &RasterSubsetGRPC{
		Context:            ctx,
		In:                 make(chan *GeoSubsetRequest, 100),
		Out:                make(chan *MergeTask, 100),
		Error:              errChan,
		Clients:            serverAddress,
		MaxGrpcRecvMsgSize: maxGrpcRecvMsgSize,
		GrpcConcLimit:      concLimit,
	}
}

func (gi *RasterSubsetGRPC) sendError(err error) {
	select {
	case gi.Error <- err:
	default:
	}
}

func timeWindows(req *GeoSubsetRequest) [][2]time.Time {
	windows := make([][2]time.Time, 0, len(req.Instants)+len(req.Ranges))
	for _, t := range req.Instants {
		windows = append(windows, [2]time.Time{t.Add(-acquisitionPadding), t.Add(acquisitionPadding)})
	}
	for _, r := range req.Ranges {
		windows = append(windows, r)
	}
	return windows
}

func ExtractEPSGCode(srs string) (int, error) {
	idx := strings.LastIndex(srs, ":")
	if idx < 0 {
		return -1, fmt.Errorf("invalid CRS: %s", srs)
	}
	return strconv.Atoi(srs[idx+1:])
}

// BBox2Geot converts a north-up bounding box into a GDAL style
// geotransform.
func BBox2Geot(width, height int, bbox [4]float64) []float64 {
	return []float64{bbox[0], (bbox[2] - bbox[0]) / float64(width), 0, bbox[3], 0, (bbox[1] - bbox[3]) / float64(height)}
}

func (gi *RasterSubsetGRPC) Run(verbose bool) {
	if verbose {
		defer log.Printf("subset grpc done")
	}
	defer close(gi.Out)

	for req := range gi.In {
		task, err := gi.subset(req)
		if err != nil {
			gi.sendError(err)
			return
		}
		gi.Out <- task
	}
}

func (gi *RasterSubsetGRPC) subset(req *GeoSubsetRequest) (*MergeTask, error) {
	t0 := time.Now()

	windows := timeWindows(req)
	bbox := [4]float64{req.Params.Longitude[0], req.Params.Latitude[0], req.Params.Longitude[1], req.Params.Latitude[1]}
	epsg, err := ExtractEPSGCode(req.Params.CRS)
	if err != nil {
		return nil, err
	}
	geot := BBox2Geot(req.Params.Width, req.Params.Height, bbox)

	var specs []*pb.SubsetSpec
	for _, win := range windows {
		for _, m := range req.Params.Measurements {
			specs = append(specs, &pb.SubsetSpec{
				Product:    req.Params.Product,
				Namespace:  m.Name,
				EPSG:       int32(epsg),
				Geot:       geot,
				Width:      int32(req.Params.Width),
				Height:     int32(req.Params.Height),
				StartTime:  win[0].Format(utils.ISOFormat),
				EndTime:    win[1].Format(utils.ISOFormat),
				Resampling: req.Params.Resampling,
			})
		}
	}

	effectivePoolSize := int(math.Ceil(float64(len(specs)) / float64(gi.GrpcConcLimit)))
	if effectivePoolSize < 1 {
		effectivePoolSize = 1
	} else if effectivePoolSize > len(gi.Clients) {
		effectivePoolSize = len(gi.Clients)
	}

	opts := []grpc.DialOption{
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(gi.MaxGrpcRecvMsgSize)),
	}

	clientIdx := make([]int, len(gi.Clients))
	for ic := range clientIdx {
		clientIdx[ic] = ic
	}
	rand.Shuffle(len(clientIdx), func(i, j int) { clientIdx[i], clientIdx[j] = clientIdx[j], clientIdx[i] })

	var connPool []*grpc.ClientConn
	for i := 0; i < effectivePoolSize; i++ {
		conn, err := grpc.Dial(gi.Clients[clientIdx[i]], opts...)
		if err != nil {
			log.Printf("gRPC connection problem: %v", err)
			continue
		}
		defer conn.Close()

		connPool = append(connPool, conn)
	}

	if len(connPool) == 0 {
		return nil, fmt.Errorf("All gRPC servers offline")
	}

	cLimiter := NewConcLimiter(gi.GrpcConcLimit * len(connPool))
	var mu sync.Mutex
	var slices []*RawSlice
	var bytesRead int64
	numFailures := 0

	var wg sync.WaitGroup
	for is, spec := range specs {
		select {
		case <-gi.Context.Done():
			return nil, gi.Context.Err()
		default:
		}

		wg.Add(1)
		cLimiter.Increase()
		go func(spec *pb.SubsetSpec, iConn int) {
			defer wg.Done()
			defer cLimiter.Decrease()
			res, err := getRPCSlices(gi.Context, spec, connPool[iConn%len(connPool)])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				numFailures++
				gi.sendError(err)
				return
			}
			for _, sl := range res {
				bytesRead += int64(len(sl.Data))
			}
			slices = append(slices, res...)
		}(spec, is)
	}
	wg.Wait()

	if req.MetricsCollector != nil {
		req.MetricsCollector.Info.RPC.Duration += time.Since(t0)
		req.MetricsCollector.Info.RPC.NumSlices += len(slices)
		req.MetricsCollector.Info.RPC.BytesRead += bytesRead
		req.MetricsCollector.Info.RPC.NumWorkers = len(connPool)
		req.MetricsCollector.Info.RPC.NumFailures += numFailures
	}

	return &MergeTask{Request: req, Slices: slices}, nil
}

func getRPCSlices(ctx context.Context, spec *pb.SubsetSpec, conn *grpc.ClientConn) ([]*RawSlice, error) {
	c := pb.NewRasterClient(conn)
	r, err := c.Subset(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(r.Error) > 0 {
		return nil, fmt.Errorf("worker error: %s", r.Error)
	}

	out := make([]*RawSlice, 0, len(r.Slices))
	for _, sl := range r.Slices {
		ts, err := time.Parse(utils.ISOFormat, sl.Timestamp)
		if err != nil {
			ts, err = time.Parse(time.RFC3339, sl.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("worker returned invalid timestamp %s", sl.Timestamp)
			}
		}
		out = append(out, &RawSlice{
			NameSpace:  spec.Namespace,
			Data:       sl.Data,
			RasterType: sl.RasterType,
			NoData:     sl.NoData,
			TimeStamp:  ts,
		})
	}
	return out, nil
}

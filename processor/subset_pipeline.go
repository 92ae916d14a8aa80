package processor

import (
	"context"

	"github.com/opendatacube/datacube-wcs/utils"
)

type SubsetPipeline struct {
	Context            context.Context
	Error              chan error
	RPCAddress         []string
	MaxGrpcRecvMsgSize int
	GrpcConcLimit      int
	TimeMean           bool
}

func InitSubsetPipeline(ctx context.Context, rpcAddr []string, maxGrpcRecvMsgSize int, concLimit int, timeMean bool, errChan chan error) *SubsetPipeline {
	return &SubsetPipeline{
		Context:            ctx,
		Error:              errChan,
		RPCAddress:         rpcAddr,
		MaxGrpcRecvMsgSize: maxGrpcRecvMsgSize,
		GrpcConcLimit:      concLimit,
		TimeMean:           timeMean,
	}
}

func (dp *SubsetPipeline) Process(req *GeoSubsetRequest, verbose bool) chan []utils.Raster {
	grpcSubsetter := NewRasterSubsetGRPC(dp.Context, dp.RPCAddress, dp.MaxGrpcRecvMsgSize, dp.GrpcConcLimit, dp.Error)

	go func() {
		grpcSubsetter.In <- req
		close(grpcSubsetter.In)
	}()

	m := NewRasterMerger(dp.TimeMean, dp.Error)
	m.In = grpcSubsetter.Out

	go grpcSubsetter.Run(verbose)
	go m.Run(verbose)

	return m.Out
}

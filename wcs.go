package main

/* wcs is a web server implementing the OGC Web Coverage Service
   1.0.0 protocol to serve gridded earth observation data. The
   server exposes its offerings through the GetCapabilities
   document and returns coverage subsets as GeoTIFF or netCDF.
   Configuration lives in the config.yaml document where
   coverages, request vocabularies and worker nodes are defined.
   The actual pixel extraction is delegated over gRPC to a pool
   of raster worker processes. */

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opendatacube/datacube-wcs/catalog"
	"github.com/opendatacube/datacube-wcs/metrics"
	proc "github.com/opendatacube/datacube-wcs/processor"
	"github.com/opendatacube/datacube-wcs/utils"

	_ "net/http/pprof"

	reuseport "github.com/kavu/go_reuseport"
)

// Global variables holding the values specified on the config.yaml
// document and the coverage catalogue built from it.
var config *utils.Config
var cat catalog.Catalog

var (
	port            = flag.Int("p", 8080, "Server listening port.")
	serverDataDir   = flag.String("data_dir", utils.DataDir, "Server data directory.")
	serverConfigDir = flag.String("conf_dir", utils.EtcDir, "Server config directory.")
	serverLogDir    = flag.String("log_dir", "", "Server log directory.")
	validateConfig  = flag.Bool("check_conf", false, "Validate server config files.")
	verbose         = flag.Bool("v", false, "Verbose mode for more server outputs.")
)

var reWCSMap map[string]*regexp.Regexp

var (
	Error *log.Logger
	Info  *log.Logger
)

var metricsLogger metrics.Logger

var contentTypes = map[string]string{
	"tiff": "image/tiff",
	"nc":   "application/x-netcdf",
}

// init initialises the loggers, checks required files are in place
// and sets the Config struct. This is the first function to be
// called in main.
func init() {
	rand.Seed(time.Now().UnixNano())

	Error = log.New(os.Stderr, "WCS: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "WCS: ", log.Ldate|log.Ltime|log.Lshortfile)

	flag.Parse()

	utils.DataDir = *serverDataDir
	utils.EtcDir = *serverConfigDir

	filePaths := []string{
		utils.DataDir + "/templates/WCS_GetCapabilities.tpl",
		utils.DataDir + "/templates/WCS_DescribeCoverage.tpl",
		utils.DataDir + "/templates/WCS_ServiceException.tpl"}

	for _, filePath := range filePaths {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			panic(err)
		}
	}

	conf, err := utils.LoadConfig(utils.EtcDir)
	if err != nil {
		Error.Printf("Error in loading config file: %v\n", err)
		panic(err)
	}

	if *validateConfig {
		os.Exit(0)
	}

	config = conf

	utils.WatchConfig(Info, Error, &config, utils.EtcDir)

	reWCSMap = utils.CompileWCSRegexMap()

	cat, err = buildCatalog(config)
	if err != nil {
		Error.Printf("Error in building the coverage catalogue: %v\n", err)
		panic(err)
	}

	if len(*serverLogDir) > 0 {
		metricsLogger = metrics.NewFileLogger(*serverLogDir, 0, 0, *verbose)
	} else {
		metricsLogger = metrics.NewStdoutLogger()
	}
}

// buildCatalog selects the Postgres-backed catalogue when a database
// host is configured and falls back to the static coverage list from
// config.yaml otherwise.
func buildCatalog(conf *utils.Config) (catalog.Catalog, error) {
	if len(conf.Catalog.DBHost) > 0 {
		defaults := catalog.CoverageDefaults{
			NativeCRS:  conf.WCS.NativeCRS,
			InputCRSs:  conf.WCS.InputCRSs,
			OutputCRSs: conf.WCS.OutputCRSs,
			Formats:    formatKeys(conf.WCS.Formats),
		}
		pgCat, err := catalog.NewPGCatalog(conf.DBInfo(), conf.Catalog.DBPoolSize,
			conf.Catalog.DBConnLimit, conf.Catalog.MemcacheURI,
			conf.Service.UpdateSequence, defaults)
		if err != nil {
			return nil, err
		}
		if len(conf.Catalog.ManifestPath) > 0 {
			entries, err := catalog.LoadManifest(conf.Catalog.ManifestPath)
			if err != nil {
				return nil, err
			}
			err = pgCat.RefreshFromManifest(entries)
			if err != nil {
				return nil, err
			}
		}
		return pgCat, nil
	}

	covs := make([]*catalog.CoverageDescriptor, len(conf.Coverages))
	for i, cc := range conf.Coverages {
		desc := &catalog.CoverageDescriptor{
			Name:         cc.Name,
			Label:        cc.Label,
			Description:  cc.Description,
			MinLatitude:  cc.MinLatitude,
			MaxLatitude:  cc.MaxLatitude,
			MinLongitude: cc.MinLongitude,
			MaxLongitude: cc.MaxLongitude,
			NativeCRS:    conf.WCS.NativeCRS,
			InputCRSs:    conf.WCS.InputCRSs,
			OutputCRSs:   conf.WCS.OutputCRSs,
			Formats:      formatKeys(conf.WCS.Formats),
		}
		start, err := utils.ParseISOTime(cc.StartTime)
		if err != nil {
			return nil, fmt.Errorf("coverage %s: %v", cc.Name, err)
		}
		end, err := utils.ParseISOTime(cc.EndTime)
		if err != nil {
			return nil, fmt.Errorf("coverage %s: %v", cc.Name, err)
		}
		desc.StartTime = start
		desc.EndTime = end
		for _, d := range cc.Dates {
			ts, err := utils.ParseISOTime(d)
			if err != nil {
				return nil, fmt.Errorf("coverage %s: %v", cc.Name, err)
			}
			desc.Dates = append(desc.Dates, ts)
		}
		for _, m := range cc.Measurements {
			desc.Measurements = append(desc.Measurements, catalog.Measurement{
				Name: m.Name, NullValue: m.NullValue, DType: m.DType})
		}
		covs[i] = desc
	}
	return catalog.NewMemCatalog(covs, conf.Service.UpdateSequence), nil
}

func formatKeys(formats map[string]string) []string {
	keys := make([]string, 0, len(formats))
	for k := range formats {
		keys = append(keys, k)
	}
	return keys
}

type exceptionData struct {
	Code    string
	Locator string
	Message string
}

// writeServiceException renders a ServiceExceptionReport. WCS 1.0.0
// exceptions travel with HTTP 200 and their own content type.
func writeServiceException(w http.ResponseWriter, metricsCollector *metrics.MetricsCollector, serr *utils.ServiceError) {
	w.Header().Set("Content-Type", utils.ServiceExceptionContentType)
	metricsCollector.Info.HTTPStatus = 200

	data := &exceptionData{Code: serr.Code, Locator: serr.Field, Message: serr.Message}
	err := utils.ExecuteWriteTemplateFile(w, data, utils.DataDir+"/templates/WCS_ServiceException.tpl")
	if err != nil {
		Error.Printf("Error in the ServiceException template: %v\n", err)
		fmt.Fprintf(w, `<ServiceExceptionReport><ServiceException code="%s">%s</ServiceException></ServiceExceptionReport>`,
			serr.Code, serr.Message)
	}
}

// compareUpdateSequence orders two update sequence values, numeric
// when both parse as numbers and lexicographic otherwise.
func compareUpdateSequence(a, b string) int {
	fa, ea := strconv.ParseFloat(a, 64)
	fb, eb := strconv.ParseFloat(b, 64)
	if ea == nil && eb == nil {
		if fa < fb {
			return -1
		} else if fa > fb {
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

type capabilitiesCoverage struct {
	Name         string
	Label        string
	Description  string
	MinLongitude float64
	MinLatitude  float64
	MaxLongitude float64
	MaxLatitude  float64
	StartTime    string
	EndTime      string
}

type capabilitiesData struct {
	ShowService         bool
	ShowCapability      bool
	ShowContentMetadata bool
	Title               string
	Abstract            string
	Fees                string
	AccessConstraints   string
	OnlineResource      string
	UpdateSequence      string
	Coverages           []*capabilitiesCoverage
}

func serveGetCapabilities(conf *utils.Config, params map[string]string, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	// Version negotiation: whatever version the client proposes,
	// the server answers with the 1.0.0 document.

	if reqSeq, found := params[utils.FieldUpdateSequence]; found {
		cmp := compareUpdateSequence(reqSeq, cat.UpdateSequence())
		if cmp == 0 {
			writeServiceException(w, metricsCollector, utils.NewServiceError(
				utils.FieldUpdateSequence, utils.ExcCurrentUpdateSequence,
				"capabilities document is current at update sequence %s", reqSeq))
			return
		}
		if cmp > 0 {
			writeServiceException(w, metricsCollector, utils.NewServiceError(
				utils.FieldUpdateSequence, utils.ExcInvalidUpdateSequence,
				"requested update sequence %s is ahead of the current %s", reqSeq, cat.UpdateSequence()))
			return
		}
	}

	data := &capabilitiesData{
		ShowService:         true,
		ShowCapability:      true,
		ShowContentMetadata: true,
		Title:               conf.Service.Title,
		Abstract:            conf.Service.Abstract,
		Fees:                conf.Service.Fees,
		AccessConstraints:   conf.Service.AccessConstraints,
		OnlineResource:      fmt.Sprintf("%s://%s/wcs?", conf.Service.OWSProtocol, conf.Service.OWSHostname),
		UpdateSequence:      cat.UpdateSequence(),
	}
	if len(data.Fees) == 0 {
		data.Fees = "NONE"
	}
	if len(data.AccessConstraints) == 0 {
		data.AccessConstraints = "NONE"
	}

	if section, found := params[utils.FieldSection]; found {
		data.ShowService = false
		data.ShowCapability = false
		data.ShowContentMetadata = false
		switch section {
		case "/":
			data.ShowService = true
			data.ShowCapability = true
			data.ShowContentMetadata = true
		case "/WCS_Capabilities/Service":
			data.ShowService = true
		case "/WCS_Capabilities/Capability":
			data.ShowCapability = true
		case "/WCS_Capabilities/ContentMetadata":
			data.ShowContentMetadata = true
		default:
			writeServiceException(w, metricsCollector, utils.NewServiceError(
				utils.FieldSection, utils.ExcInvalidParameterValue,
				"section %s is not a valid capabilities section", section))
			return
		}
	}

	covs, err := cat.ListCoverages()
	if err != nil {
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
		return
	}
	metricsCollector.Info.Catalog.NumCoverages = len(covs)
	for _, cov := range covs {
		data.Coverages = append(data.Coverages, &capabilitiesCoverage{
			Name:         cov.Name,
			Label:        cov.Label,
			Description:  cov.Description,
			MinLongitude: cov.MinLongitude,
			MinLatitude:  cov.MinLatitude,
			MaxLongitude: cov.MaxLongitude,
			MaxLatitude:  cov.MaxLatitude,
			StartTime:    cov.StartTime.Format(utils.ISOFormat),
			EndTime:      cov.EndTime.Format(utils.ISOFormat),
		})
	}

	err = utils.ExecuteWriteTemplateFile(w, data, utils.DataDir+"/templates/WCS_GetCapabilities.tpl")
	if err != nil {
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
	}
}

type measurementDescription struct {
	Name      string
	NullValue float64
	DType     string
}

type coverageDescription struct {
	capabilitiesCoverage
	Dates          []string
	NativeCRS      string
	SupportedCRSs  []string
	ResponseCRSs   []string
	Formats        []string
	Interpolations []string
	Measurements   []measurementDescription
	ResX           float64
	ResY           float64
}

type describeCoverageData struct {
	Coverages []*coverageDescription
}

func serveDescribeCoverage(conf *utils.Config, params map[string]string, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	version, found := params[utils.FieldVersion]
	if !found {
		writeServiceException(w, metricsCollector, utils.NewServiceError(
			utils.FieldVersion, utils.ExcMissingParameterValue, "VERSION parameter is required"))
		return
	}
	if !utils.CheckWCSVersion(version) {
		writeServiceException(w, metricsCollector, utils.NewServiceError(
			utils.FieldVersion, utils.ExcInvalidParameterValue,
			"this server only supports WCS version 1.0.0, got %s", version))
		return
	}

	var covs []*catalog.CoverageDescriptor
	var err error
	if names, found := params[utils.FieldCoverage]; found && len(names) > 0 {
		covs, err = catalog.ResolveMany(cat, strings.Split(names, ","))
	} else {
		covs, err = cat.ListCoverages()
	}
	if err != nil {
		if catalog.IsNotFound(err) {
			writeServiceException(w, metricsCollector, utils.NewServiceError(
				utils.FieldCoverage, utils.ExcCoverageNotDefined, "%v", err))
			return
		}
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
		return
	}
	metricsCollector.Info.Catalog.NumCoverages = len(covs)
	if len(covs) == 1 {
		metricsCollector.Info.Catalog.Coverage = covs[0].Name
	}

	interpolations := make([]string, 0, len(conf.WCS.Interpolations))
	for name := range conf.WCS.Interpolations {
		interpolations = append(interpolations, name)
	}

	data := &describeCoverageData{}
	for _, cov := range covs {
		desc := &coverageDescription{
			capabilitiesCoverage: capabilitiesCoverage{
				Name:         cov.Name,
				Label:        cov.Label,
				Description:  cov.Description,
				MinLongitude: cov.MinLongitude,
				MinLatitude:  cov.MinLatitude,
				MaxLongitude: cov.MaxLongitude,
				MaxLatitude:  cov.MaxLatitude,
				StartTime:    cov.StartTime.Format(utils.ISOFormat),
				EndTime:      cov.EndTime.Format(utils.ISOFormat),
			},
			NativeCRS:      cov.NativeCRS,
			SupportedCRSs:  cov.InputCRSs,
			ResponseCRSs:   cov.OutputCRSs,
			Formats:        cov.Formats,
			Interpolations: interpolations,
		}
		for _, d := range cov.Dates {
			desc.Dates = append(desc.Dates, d.Format(utils.ISOFormat))
		}
		for _, m := range cov.Measurements {
			desc.Measurements = append(desc.Measurements, measurementDescription{
				Name: m.Name, NullValue: m.NullValue, DType: m.DType})
		}
		data.Coverages = append(data.Coverages, desc)
	}

	err = utils.ExecuteWriteTemplateFile(w, data, utils.DataDir+"/templates/WCS_DescribeCoverage.tpl")
	if err != nil {
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
	}
}

func serveGetCoverage(ctx context.Context, conf *utils.Config, params map[string]string, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	version, found := params[utils.FieldVersion]
	if !found {
		writeServiceException(w, metricsCollector, utils.NewServiceError(
			utils.FieldVersion, utils.ExcMissingParameterValue, "VERSION parameter is required"))
		return
	}
	if !utils.CheckWCSVersion(version) {
		writeServiceException(w, metricsCollector, utils.NewServiceError(
			utils.FieldVersion, utils.ExcInvalidParameterValue,
			"this server only supports WCS version 1.0.0, got %s", version))
		return
	}

	t0 := time.Now()
	validator := utils.NewSubsetValidator(conf.Capabilities(), cat)
	subsetReq, serr := validator.Validate(params)
	if serr != nil {
		writeServiceException(w, metricsCollector, serr)
		return
	}
	metricsCollector.Info.Catalog.Duration = time.Since(t0)
	metricsCollector.Info.Catalog.Coverage = subsetReq.Coverage.Name

	if *verbose {
		Info.Printf("WCS GetCoverage: %s\n", subsetReq)
	}

	dataParams, instants, ranges := utils.TranslateSubsetRequest(subsetReq)
	geoReq := &proc.GeoSubsetRequest{
		Params:           dataParams,
		Instants:         instants,
		Ranges:           ranges,
		MetricsCollector: metricsCollector,
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(),
		time.Duration(conf.Service.WCSTimeout)*time.Second)
	defer timeoutCancel()

	errChan := make(chan error, 100)
	sp := proc.InitSubsetPipeline(ctx, conf.Service.WorkerNodes,
		conf.Service.MaxGrpcRecvMsgSize, conf.Service.GrpcConcLimit,
		conf.TimeMean(), errChan)

	var rasters []utils.Raster
	select {
	case res, ok := <-sp.Process(geoReq, *verbose):
		if !ok {
			errMsg := "WCS pipeline closed without a result"
			Error.Printf("%s\n", errMsg)
			metricsCollector.Info.HTTPStatus = 500
			http.Error(w, errMsg, 500)
			return
		}
		rasters = res
	case err := <-errChan:
		Info.Printf("WCS: error in the pipeline: %v\n", err)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
		return
	case <-ctx.Done():
		Error.Printf("Context cancelled with message: %v\n", ctx.Err())
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, ctx.Err().Error(), 500)
		return
	case <-timeoutCtx.Done():
		Error.Printf("WCS pipeline timed out, threshold:%v seconds\n", conf.Service.WCSTimeout)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, "WCS pipeline timed out", 500)
		return
	}

	epsg, err := proc.ExtractEPSGCode(subsetReq.ResponseCRS)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
		return
	}

	ext := conf.WCS.Formats[subsetReq.Format]
	var payload []byte
	if ext == "nc" {
		payload, err = utils.EncodeNetCDF(rasters, subsetReq.BBox, epsg)
	} else {
		payload, err = utils.EncodeGeoTIFF(rasters, subsetReq.BBox, epsg)
	}
	if err != nil {
		Error.Printf("WCS encoding error: %v\n", err)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
		return
	}

	fileTime := time.Now().UTC()
	if len(instants) > 0 {
		fileTime = instants[0]
	}
	fileName := fmt.Sprintf("%s.%s.%s", subsetReq.Coverage.Name, fileTime.Format(utils.ISOFormat), ext)

	contentType, found := contentTypes[ext]
	if !found {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	w.Write(payload)
}

func serveWCS(ctx context.Context, conf *utils.Config, params map[string]string, r *http.Request, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	if serr := utils.CheckRouting(params, reWCSMap); serr != nil {
		writeServiceException(w, metricsCollector, serr)
		return
	}

	switch params[utils.FieldRequest] {
	case "GetCapabilities":
		serveGetCapabilities(conf, params, w, metricsCollector)
	case "DescribeCoverage":
		serveDescribeCoverage(conf, params, w, metricsCollector)
	case "GetCoverage":
		serveGetCoverage(ctx, conf, params, w, metricsCollector)
	}
}

func generalHandler(conf *utils.Config, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	if *verbose {
		Info.Printf("%s\n", r.URL.String())
	}
	ctx := r.Context()

	metricsCollector := metrics.NewMetricsCollector(metricsLogger)
	defer metricsCollector.Log()

	t0 := time.Now()
	metricsCollector.Info.ReqTime = t0.Format(utils.ISOFormat)
	defer func() { metricsCollector.Info.ReqDuration = time.Since(t0) }()

	reqURL, e := url.QueryUnescape(r.URL.String())
	if e == nil {
		metricsCollector.Info.URL.RawURL = reqURL
	} else {
		metricsCollector.Info.URL.RawURL = r.URL.String()
	}

	metricsCollector.Info.RemoteAddr = utils.ParseRemoteAddr(r)
	metricsCollector.Info.HTTPStatus = 200

	query, err := utils.ParseQuery(r.URL.RawQuery)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Failed to parse query: %v", err), 400)
		return
	}

	params := utils.NormalizeKVP(query)
	serveWCS(ctx, conf, params, r, w, metricsCollector)
}

func wcsHandler(w http.ResponseWriter, r *http.Request) {
	generalHandler(config, w, r)
}

func fileHandler(w http.ResponseWriter, r *http.Request) {
	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
		r.URL.Path = upath
	}
	upath = path.Clean(upath)
	upath = filepath.Join(utils.DataDir+"/static", upath)

	if *verbose {
		Info.Printf("%s -> %s\n", r.URL.String(), upath)
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	http.ServeFile(w, r, upath)
}

func main() {
	http.HandleFunc("/", fileHandler)
	http.HandleFunc("/wcs", wcsHandler)
	http.HandleFunc("/wcs/", wcsHandler)

	listener, err := reuseport.Listen("tcp4", fmt.Sprintf("0.0.0.0:%d", *port))
	if err != nil {
		Error.Fatalf("Failed to listen on port %d: %v\n", *port, err)
	}

	Info.Printf("WCS server is ready on port %d", *port)
	log.Fatal(http.Serve(listener, nil))
}

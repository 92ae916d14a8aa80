package main

import (
	"bufio"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh/terminal"

	proc "github.com/opendatacube/datacube-wcs/processor"
)

var wcs_caps string = "http://%s/wcs?service=WCS&version=1.0.0&request=GetCapabilities"
var wcs_caps_mixed string = "http://%s/wcs?SeRvIcE=WCS&VeRsIoN=1.0.0&ReQuEsT=GetCapabilities"
var wcs_caps_bad_service string = "http://%s/wcs?service=wcs&version=1.0.0&request=GetCapabilities"
var wcs_descr string = "http://%s/wcs?service=WCS&version=1.0.0&request=DescribeCoverage"
var wcs_descr_no_service string = "http://%s/wcs?version=1.0.0&request=DescribeCoverage"
var passed string = "Passed"
var failed string = "Failed"

const exceptionContentType = "application/vnd.ogc.se_xml"

func fetch(host, req string) (*http.Response, []byte) {
	resp, err := http.Get(fmt.Sprintf(req, host))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}
	return resp, body
}

func Capabilities(host, req string) bool {
	resp, body := fetch(host, req)
	if resp.StatusCode != 200 {
		return false
	}
	return strings.Contains(string(body), "WCS_Capabilities")
}

// Exception checks that the request draws a ServiceExceptionReport
// with the expected code, served as 200 with the OGC exception
// content type.
func Exception(host, req, code string) bool {
	resp, body := fetch(host, req)
	if resp.StatusCode != 200 {
		return false
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), exceptionContentType) {
		return false
	}
	return strings.Contains(string(body), code)
}

func UpdateSequence(host string) bool {
	resp, body := fetch(host, wcs_caps)
	if resp.StatusCode != 200 {
		return false
	}
	doc := string(body)
	marker := `updateSequence="`
	idx := strings.Index(doc, marker)
	if idx < 0 {
		return false
	}
	rest := doc[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return false
	}
	seq := rest[:end]

	current := wcs_caps + "&updatesequence=" + seq
	if !Exception(host, current, "CurrentUpdateSequence") {
		return false
	}
	ahead := wcs_caps + "&updatesequence=" + seq + "zzz"
	return Exception(host, ahead, "InvalidUpdateSequence")
}

// GetCoverage replays a file of GetCoverage URL templates against the
// host with bounded concurrency.
func GetCoverage(host, urlList string, concLevel int) (bool, time.Duration) {
	out := true
	start := time.Now()
	f, err := os.Open(urlList)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	conc := proc.NewConcLimiter(concLevel)
	results := make(chan int)
	defer close(results)
	go func() {
		for res := range results {
			if res != 200 {
				out = false
			}
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		conc.Increase()
		go func(url string) {
			resp, err := http.Get(fmt.Sprintf(url, host))
			if err != nil {
				log.Fatal(err)
			}
			resp.Body.Close()
			results <- resp.StatusCode
			conc.Decrease()
		}(scanner.Text())
	}

	conc.Wait()

	return out, time.Since(start)
}

func inRed(str string) string {
	return fmt.Sprintf("\x1b[31;1m%s\x1b[0m", str)
}

func inGreen(str string) string {
	return fmt.Sprintf("\x1b[32;1m%s\x1b[0m", str)
}

func main() {
	host := flag.String("h", "localhost:8080", "WCS host name or address")
	suite := flag.String("s", "conformance", "Test suite [conformance, load]")
	conc := flag.Int("n", 6, "Concurrency level for acceptance tests")
	flag.Parse()

	var t time.Duration
	var ok bool

	if terminal.IsTerminal(int(os.Stdout.Fd())) {
		passed = inGreen(passed)
		failed = inRed(failed)
	}

	switch *suite {
	case "conformance":
		fmt.Printf("Testing WCS GetCapabilities: ")
		if !Capabilities(*host, wcs_caps) {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed)

		fmt.Printf("Testing mixed-case parameter names: ")
		if !Capabilities(*host, wcs_caps_mixed) {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed)

		fmt.Printf("Testing case-sensitive SERVICE value: ")
		if !Exception(*host, wcs_caps_bad_service, "InvalidParameterValue") {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed)

		fmt.Printf("Testing required SERVICE parameter: ")
		if !Exception(*host, wcs_descr_no_service, "MissingParameterValue") {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed)

		fmt.Printf("Testing update sequence negotiation: ")
		if !UpdateSequence(*host) {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed)

		fmt.Printf("Testing WCS DescribeCoverage: ")
		resp, body := fetch(*host, wcs_descr)
		if resp.StatusCode != 200 || !strings.Contains(string(body), "CoverageOffering") {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed)
	case "load":
		fmt.Printf("Testing WCS GetCoverage requests: ")
		if ok, t = GetCoverage(*host, "acpt_url.tpl", *conc); !ok {
			fmt.Println(failed)
			os.Exit(1)
		}
		fmt.Println(passed, t)
	}
}

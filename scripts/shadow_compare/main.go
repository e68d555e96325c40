// Command shadow_compare replays read-only portal requests against both the
// legacy portal backend and this API and reports response differences.
// Responses are compared as envelopes: volatile fields such as timestamps,
// response meta and per-student catalog decoration are scrubbed before the
// comparison so they never count as a mismatch. Critical targets failing the
// comparison exit non-zero so the check can gate a cutover.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

// volatileKeys are scrubbed from every JSON body before comparison: both
// backends stamp them independently so equality is never expected.
var volatileKeys = map[string]struct{}{
	"meta":        {},
	"created_at":  {},
	"updated_at":  {},
	"enrolled_at": {},
	"dropped_at":  {},
	"last_login":  {},
	"expires_at":  {},
	"timestamp":   {},
	"request_id":  {},
}

type target struct {
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Critical bool     `json:"critical"`
	// Ignore lists extra JSON keys to scrub for this target, such as the
	// per-student "status" decoration on catalog rows.
	Ignore []string `json:"ignore"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target        target
	LegacyStatus  int
	PortalStatus  int
	StatusMatch   bool
	BodyMatch     bool
	Err           error
	PortalLatency time.Duration
	LegacyLatency time.Duration
}

func main() {
	var (
		portalBase  string
		legacyBase  string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&portalBase, "portal-base", "http://localhost:8080", "portal API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "legacy backend base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var results []result
	breaking, optional := 0, 0

	for _, tgt := range targets {
		res := compare(client, portalBase, legacyBase, tgt)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if tgt.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	report(results)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func compare(client *http.Client, portalBase, legacyBase string, tgt target) result {
	res := result{Target: tgt}

	portalBody, portalStatus, portalDur, err := fetch(client, portalBase, tgt)
	if err != nil {
		res.Err = fmt.Errorf("portal request failed: %w", err)
		return res
	}
	legacyBody, legacyStatus, legacyDur, err := fetch(client, legacyBase, tgt)
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.PortalStatus = portalStatus
	res.LegacyStatus = legacyStatus
	res.PortalLatency = portalDur
	res.LegacyLatency = legacyDur
	res.StatusMatch = portalStatus == legacyStatus
	res.BodyMatch = bodiesEqual(portalBody, legacyBody, tgt.Ignore)
	return res
}

func fetch(client *http.Client, base string, tgt target) ([]byte, int, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, err
	}
	return body, resp.StatusCode, time.Since(start), nil
}

// bodiesEqual parses both payloads, scrubs volatile and per-target ignored
// keys, normalises number representation and compares what remains. Non-JSON
// bodies are compared verbatim.
func bodiesEqual(portal, legacy []byte, ignore []string) bool {
	ignored := make(map[string]struct{}, len(ignore))
	for _, key := range ignore {
		ignored[key] = struct{}{}
	}

	var pv, lv interface{}
	perr := json.Unmarshal(portal, &pv)
	lerr := json.Unmarshal(legacy, &lv)
	if perr != nil || lerr != nil {
		return strings.TrimSpace(string(portal)) == strings.TrimSpace(string(legacy))
	}

	scrub(&pv, ignored)
	scrub(&lv, ignored)
	return reflect.DeepEqual(pv, lv)
}

// scrub walks the value removing volatile and ignored keys and collapsing
// whole-number floats so 3 and 3.0 compare equal.
func scrub(v *interface{}, ignored map[string]struct{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for key, inner := range val {
			if _, drop := volatileKeys[key]; drop {
				delete(val, key)
				continue
			}
			if _, drop := ignored[key]; drop {
				delete(val, key)
				continue
			}
			scrub(&inner, ignored)
			val[key] = inner
		}
	case []interface{}:
		for i, inner := range val {
			scrub(&inner, ignored)
			val[i] = inner
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func report(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		state := "OK"
		switch {
		case res.Err != nil:
			state = "ERROR"
		case !res.StatusMatch || !res.BodyMatch:
			state = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", state, res.Target.Method, res.Target.Path)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  Portal: %d (%s) | Legacy: %d (%s)\n", res.PortalStatus, res.PortalLatency, res.LegacyStatus, res.LegacyLatency)
		fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
	}
}

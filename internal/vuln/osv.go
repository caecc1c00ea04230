package vuln

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/codescope-io/codescope/internal/deps"
	"github.com/codescope-io/codescope/pkg/models"
	"github.com/codescope-io/codescope/pkg/utils"
)

// OSVMatcher queries the osv.dev API. Batch queries locate dependencies with
// known advisories; full advisory documents are then fetched per dependency.
type OSVMatcher struct {
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	batchSize   int
	maxAttempts int
	logger      *logrus.Logger
	metrics     *utils.Metrics
}

func NewOSVMatcher(cfg models.MatcherConfig, metrics *utils.Metrics, logger *logrus.Logger) *OSVMatcher {
	if logger == nil {
		logger = logrus.New()
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &OSVMatcher{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		client:      &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
		batchSize:   batch,
		maxAttempts: attempts,
		logger:      logger,
		metrics:     metrics,
	}
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version"`
}

type osvAdvisory struct {
	ID               string   `json:"id"`
	Summary          string   `json:"summary"`
	Details          string   `json:"details"`
	Aliases          []string `json:"aliases"`
	DatabaseSpecific struct {
		Severity string   `json:"severity"`
		CWEIDs   []string `json:"cwe_ids"`
	} `json:"database_specific"`
	Severity []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`
	Affected []struct {
		Ranges []struct {
			Type   string `json:"type"`
			Events []struct {
				Introduced string `json:"introduced"`
				Fixed      string `json:"fixed"`
			} `json:"events"`
		} `json:"ranges"`
	} `json:"affected"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

func (m *OSVMatcher) Match(ctx context.Context, dependencies []models.Dependency) (map[string][]models.Vulnerability, error) {
	results := make(map[string][]models.Vulnerability)

	queryable := make([]models.Dependency, 0, len(dependencies))
	for _, dep := range dependencies {
		if deps.MapEcosystem(dep.Type) != "" && deps.ValidVersion(dep.Version) {
			queryable = append(queryable, dep)
		}
	}
	if len(queryable) == 0 {
		return results, nil
	}

	for start := 0; start < len(queryable); start += m.batchSize {
		end := min(start+m.batchSize, len(queryable))
		chunk := queryable[start:end]

		hits, err := m.queryBatch(ctx, chunk)
		if err != nil {
			return nil, models.Matchf("vulnerability source unavailable: %v", err)
		}
		for i, hit := range hits {
			if !hit {
				continue
			}
			dep := chunk[i]
			vulns, err := m.queryOne(ctx, dep)
			if err != nil {
				// Best effort per dependency once the source itself is up.
				m.logger.Warnf("OSV query failed for %s: %v", dep.Key(), err)
				continue
			}
			if len(vulns) > 0 {
				results[dep.Key()] = vulns
			}
		}
	}
	return results, nil
}

// queryBatch returns one bool per dependency: whether any advisory matched.
func (m *OSVMatcher) queryBatch(ctx context.Context, chunk []models.Dependency) ([]bool, error) {
	queries := make([]osvQuery, len(chunk))
	for i, dep := range chunk {
		queries[i] = osvQuery{
			Package: osvPackage{Name: dep.Name, Ecosystem: deps.MapEcosystem(dep.Type)},
			Version: dep.Version,
		}
	}

	var response struct {
		Results []struct {
			Vulns []struct {
				ID string `json:"id"`
			} `json:"vulns"`
		} `json:"results"`
	}
	body := map[string]any{"queries": queries}
	if err := m.post(ctx, m.baseURL+"/querybatch", body, &response); err != nil {
		return nil, err
	}

	hits := make([]bool, len(chunk))
	for i := range response.Results {
		if i < len(hits) {
			hits[i] = len(response.Results[i].Vulns) > 0
		}
	}
	return hits, nil
}

func (m *OSVMatcher) queryOne(ctx context.Context, dep models.Dependency) ([]models.Vulnerability, error) {
	var response struct {
		Vulns []osvAdvisory `json:"vulns"`
	}
	body := osvQuery{
		Package: osvPackage{Name: dep.Name, Ecosystem: deps.MapEcosystem(dep.Type)},
		Version: dep.Version,
	}
	if err := m.post(ctx, m.baseURL+"/query", body, &response); err != nil {
		return nil, err
	}

	out := make([]models.Vulnerability, 0, len(response.Vulns))
	for _, adv := range response.Vulns {
		out = append(out, m.convert(dep, adv))
	}
	return out, nil
}

func (m *OSVMatcher) convert(dep models.Dependency, adv osvAdvisory) models.Vulnerability {
	cve := adv.ID
	for _, alias := range adv.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			cve = alias
			break
		}
	}

	severity := strings.ToUpper(adv.DatabaseSpecific.Severity)
	if severity == "" {
		severity = "UNKNOWN"
	}

	title := adv.Summary
	if title == "" {
		title = cve
	}

	affected, fixed := "unknown", "unknown"
	for _, aff := range adv.Affected {
		for _, rng := range aff.Ranges {
			var introduced, fixedAt string
			for _, ev := range rng.Events {
				if ev.Introduced != "" {
					introduced = ev.Introduced
				}
				if ev.Fixed != "" {
					fixedAt = ev.Fixed
				}
			}
			if rangeContains(dep.Version, introduced, fixedAt) {
				if introduced != "" {
					affected = ">=" + introduced
				}
				if fixedAt != "" {
					fixed = fixedAt
				}
			}
		}
	}

	var refs []string
	for _, ref := range adv.References {
		refs = append(refs, ref.URL)
	}

	cwe := ""
	if len(adv.DatabaseSpecific.CWEIDs) > 0 {
		cwe = adv.DatabaseSpecific.CWEIDs[0]
	}

	return models.Vulnerability{
		CVE:             cve,
		CWE:             cwe,
		Title:           title,
		Description:     adv.Details,
		Severity:        severity,
		CVSSScore:       EstimateCVSS(severity),
		AffectedVersion: affected,
		FixedVersion:    fixed,
		References:      strings.Join(refs, "\n"),
		Status:          models.VulnStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}
}

func (m *OSVMatcher) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		if m.metrics != nil {
			m.metrics.MatcherQueries.Inc()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%s returned %d", url, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return lastErr
			}
			continue
		}
		return json.Unmarshal(data, out)
	}
	return lastErr
}

// Package scoring computes weighted multi-dimensional similarity scores
// for candidate record pairs.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Scoring dimension names. All six are weighted; the domain and phone
// dimensions carry low weights and act as corroborating signals next to
// the email and company name comparisons.
const (
	DimensionEmail    = "email"
	DimensionCompany  = "company_name"
	DimensionDomain   = "domain"
	DimensionTemporal = "temporal"
	DimensionAmount   = "amount"
	DimensionPhone    = "phone"
)

// Config contains configuration for the scoring engine
type Config struct {
	// Weights per dimension. Must sum to 1.0 (checked at construction).
	Weights map[string]float64 `validate:"required,min=1"`
	// Threshold is the default minimum total score for a pair to be kept.
	Threshold float64 `validate:"gte=0,lte=1"`
	// FuzzyNameThreshold is the minimum fuzzy similarity for a company
	// name match to count at all.
	FuzzyNameThreshold float64 `validate:"gte=0,lte=1"`
	// TemporalToleranceDays is the window for temporal proximity scoring.
	TemporalToleranceDays int `validate:"gte=0"`
	// AmountTolerancePct is the relative difference treated as an exact
	// amount match.
	AmountTolerancePct float64 `validate:"gte=0,lte=1"`
	// Workers bounds scoring parallelism. Pairs are independent, so
	// scoring is read-only and freely parallel.
	Workers int `validate:"gte=1"`
}

// DefaultConfig returns default scoring configuration
func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			DimensionEmail:    0.35,
			DimensionCompany:  0.25,
			DimensionDomain:   0.15,
			DimensionTemporal: 0.10,
			DimensionAmount:   0.10,
			DimensionPhone:    0.05,
		},
		Threshold:             0.50,
		FuzzyNameThreshold:    0.80,
		TemporalToleranceDays: 3,
		AmountTolerancePct:    0.05,
		Workers:               4,
	}
}

// field alias lists, first populated field wins
var (
	emailFields  = []string{"email", "email_address", "owner_email", "contact_email"}
	nameFields   = []string{"name", "company_name", "company", "account_name"}
	tsFields     = []string{"created", "created_at", "signup_date"}
	amountFields = []string{"mrr", "amount", "revenue", "plan_amount"}
	phoneFields  = []string{"phone", "phone_number", "contact_phone"}
)

// Engine computes pairwise match scores for candidate pairs.
type Engine struct {
	logger ectologger.Logger
	scorer *Scorer
	eval   *expressions.Evaluator
	config Config
}

// NewEngine creates a new scoring engine. The weight table is validated at
// construction: weights must sum to 1.0 within a 0.01 tolerance.
func NewEngine(logger ectologger.Logger, config Config) (*Engine, error) {
	if _, err := utils.Validate(config); err != nil {
		return nil, err
	}

	var sum float64
	for _, w := range config.Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 0.01 {
		return nil, fmt.Errorf("scoring dimension weights must sum to 1.0, got %.4f", sum)
	}

	return &Engine{
		logger: logger,
		scorer: NewScorer(),
		eval:   expressions.NewEvaluator(),
		config: config,
	}, nil
}

// ScorePair computes the weighted total score and evidence trail for one
// candidate pair.
func (e *Engine) ScorePair(recordA, recordB *models.NormalizedRecord, candidate models.BlockingCandidate) models.PairScore {
	dimensions := make(map[string]float64, len(e.config.Weights))
	evidence := make([]string, 0, 4)

	emailA := e.field(recordA, emailFields)
	emailB := e.field(recordB, emailFields)
	score, method := ScoreEmail(emailA, emailB)
	dimensions[DimensionEmail] = score
	if score > 0 {
		evidence = append(evidence, fmt.Sprintf("%s: %s <> %s", method, emailA, emailB))
	}

	nameA := e.field(recordA, nameFields)
	nameB := e.field(recordB, nameFields)
	score, method = e.ScoreCompanyName(nameA, nameB)
	dimensions[DimensionCompany] = score
	if score > 0 {
		evidence = append(evidence, fmt.Sprintf("%s: %s <> %s", method, nameA, nameB))
	}

	score, method = ScoreDomain(emailA, emailB)
	dimensions[DimensionDomain] = score
	if score > 0 {
		evidence = append(evidence, method)
	}

	score, method = e.ScoreTemporal(e.field(recordA, tsFields), e.field(recordB, tsFields))
	dimensions[DimensionTemporal] = score
	if score > 0 {
		evidence = append(evidence, method)
	}

	score, method = e.ScoreAmount(e.field(recordA, amountFields), e.field(recordB, amountFields))
	dimensions[DimensionAmount] = score
	if score > 0 {
		evidence = append(evidence, method)
	}

	score, method = ScorePhone(e.field(recordA, phoneFields), e.field(recordB, phoneFields))
	dimensions[DimensionPhone] = score
	if score > 0 {
		evidence = append(evidence, method)
	}

	var total float64
	for dim, weight := range e.config.Weights {
		total += dimensions[dim] * weight
	}

	return models.PairScore{
		RecordAID:       candidate.RecordAID,
		RecordASource:   candidate.RecordASource,
		RecordBID:       candidate.RecordBID,
		RecordBSource:   candidate.RecordBSource,
		TotalScore:      round4(total),
		DimensionScores: dimensions,
		Evidence:        evidence,
	}
}

// ScoreCandidates scores every candidate with a resolvable record pair and
// keeps pairs at or above the threshold. Candidates referencing unknown
// records are skipped, not errors. Output order follows input order.
func (e *Engine) ScoreCandidates(
	ctx context.Context,
	candidates []models.BlockingCandidate,
	recordsByKey map[string]*models.NormalizedRecord,
	threshold float64,
) []models.PairScore {
	ctx, span := tracing.StartSpan(ctx, "scoring.Engine.ScoreCandidates")
	defer span.End()

	results := make([]*models.PairScore, len(candidates))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.config.Workers)
	for i := range candidates {
		recordA := recordsByKey[candidates[i].RecordASource+":"+candidates[i].RecordAID]
		recordB := recordsByKey[candidates[i].RecordBSource+":"+candidates[i].RecordBID]
		if recordA == nil || recordB == nil {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, a, b *models.NormalizedRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			pair := e.ScorePair(a, b, candidates[i])
			results[i] = &pair
		}(i, recordA, recordB)
	}
	wg.Wait()

	scored := make([]models.PairScore, 0, len(candidates))
	for _, pair := range results {
		if pair != nil && pair.TotalScore >= threshold {
			scored = append(scored, *pair)
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"scored_count":    len(scored),
		"candidate_count": len(candidates),
		"threshold":       threshold,
	}).Info("Scored candidate pairs")

	return scored
}

// Threshold returns the engine's default pair-score threshold.
func (e *Engine) Threshold() float64 {
	return e.config.Threshold
}

// ScoreEmail compares two email addresses: exact case-insensitive match
// scores 1.0, a shared normalized domain scores 0.8.
func ScoreEmail(emailA, emailB string) (float64, string) {
	if emailA == "" || emailB == "" {
		return 0.0, "no_email"
	}
	a := strings.ToLower(strings.TrimSpace(emailA))
	b := strings.ToLower(strings.TrimSpace(emailB))
	if a == b {
		return 1.0, "email_exact"
	}
	domainA := normalizers.EmailDomain(a)
	domainB := normalizers.EmailDomain(b)
	if domainA != "" && domainA == domainB {
		return 0.8, "email_domain"
	}
	return 0.0, "email_mismatch"
}

// ScoreCompanyName compares two company names: exact normalized match
// scores 1.0, fuzzy similarity at or above the configured threshold scores
// the similarity itself, anything lower scores 0.
func (e *Engine) ScoreCompanyName(nameA, nameB string) (float64, string) {
	if nameA == "" || nameB == "" {
		return 0.0, "no_name"
	}
	if normalizers.CompanyName(nameA) == normalizers.CompanyName(nameB) {
		return 1.0, "name_exact"
	}
	similarity := e.scorer.JaroWinkler(strings.ToLower(nameA), strings.ToLower(nameB))
	if similarity >= 0.95 {
		return 1.0, "name_exact"
	}
	if similarity >= e.config.FuzzyNameThreshold {
		return round4(similarity), "name_fuzzy"
	}
	return 0.0, "name_mismatch"
}

// ScoreDomain compares the normalized email domains directly.
func ScoreDomain(emailA, emailB string) (float64, string) {
	domainA := normalizers.EmailDomain(emailA)
	domainB := normalizers.EmailDomain(emailB)
	if domainA == "" || domainB == "" {
		return 0.0, "no_domain"
	}
	if domainA == domainB {
		return 1.0, "domain_match"
	}
	return 0.0, "domain_mismatch"
}

// ScoreTemporal scores the proximity of two timestamps inside the
// tolerance window, decaying linearly with day difference. Unparsable
// timestamps score 0.
func (e *Engine) ScoreTemporal(tsA, tsB string) (float64, string) {
	if tsA == "" || tsB == "" {
		return 0.0, "no_timestamp"
	}
	timeA, okA := parseTimestamp(tsA)
	timeB, okB := parseTimestamp(tsB)
	if !okA || !okB {
		return 0.0, "temporal_mismatch"
	}
	days := int(math.Abs(timeA.Sub(timeB).Hours()) / 24)
	if days > e.config.TemporalToleranceDays {
		return 0.0, "temporal_mismatch"
	}
	score := e.scorer.DateProximity(timeA, timeB, e.config.TemporalToleranceDays)
	return round4(score), fmt.Sprintf("temporal_match_%dd", days)
}

// ScoreAmount scores the relative difference of two monetary amounts.
// Two exact zeros get partial credit only: matching on "no revenue" is
// weak evidence.
func (e *Engine) ScoreAmount(amountA, amountB string) (float64, string) {
	if amountA == "" || amountB == "" {
		return 0.0, "no_amount"
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(amountA), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(amountB), 64)
	if errA != nil || errB != nil {
		return 0.0, "amount_parse_error"
	}
	if a == 0 && b == 0 {
		return 0.5, "both_zero"
	}
	maxVal := math.Max(math.Abs(a), math.Abs(b))
	if maxVal == 0 {
		return 0.0, "amount_zero"
	}
	diffPct := math.Abs(a-b) / maxVal
	if diffPct <= e.config.AmountTolerancePct {
		return 1.0, "amount_exact"
	}
	if diffPct <= 0.10 {
		return 0.7, "amount_close"
	}
	return 0.0, "amount_mismatch"
}

// ScorePhone compares normalized subscriber numbers.
func ScorePhone(phoneA, phoneB string) (float64, string) {
	a := normalizers.Phone(phoneA)
	b := normalizers.Phone(phoneB)
	if a == "" || b == "" {
		return 0.0, "no_phone"
	}
	if a == b {
		return 1.0, "phone_match"
	}
	return 0.0, "phone_mismatch"
}

// field extracts the first populated alias as a string, or "".
func (e *Engine) field(record *models.NormalizedRecord, aliases []string) string {
	value, err := e.eval.EvaluateString(expressions.FirstOf(aliases...), record.Data)
	if err != nil || value == nil {
		return ""
	}
	return *value
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

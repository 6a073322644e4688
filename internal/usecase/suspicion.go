package usecase

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/fanarena/voting-service/internal/core/domain"
)

const (
	rapidVotingSeconds   = 3.0
	preciseTimingSeconds = 1.0
	unusualHourStart     = 3
	unusualHourEnd       = 6
	newAccountAge        = 7 * 24 * time.Hour
	sequentialVoteGap    = 10 * time.Second
	patternSampleSize    = 3
	patternClusterRadius = 0.5

	chromeVersionCeiling  = 160
	firefoxVersionCeiling = 150
)

var (
	botClientPattern = regexp.MustCompile(`(?i)bot|crawl|spider|scrape|headless|phantomjs|selenium|puppeteer|playwright|curl|wget|python-requests|httpclient|okhttp`)

	chromeVersionPattern  = regexp.MustCompile(`Chrome/(\d+)`)
	firefoxVersionPattern = regexp.MustCompile(`Firefox/(\d+)`)
)

// SuspicionInput contains everything the scorer needs about a single
// submission. RecentAudits must be the user's most recent audit records in
// newest-first order; the first entry is the vote immediately preceding this
// submission.
type SuspicionInput struct {
	SubmittedAt      time.Time
	AccountCreatedAt time.Time
	UserAgent        string
	TimeOnPage       float64
	RecentAudits     []domain.VoteAuditRecord
}

// SuspicionScorer evaluates behavioral signals for a vote submission. All
// factors are advisory: they are recorded on the audit trail and published
// as events, but never block the vote on their own.
type SuspicionScorer struct {
	loc *time.Location
}

// NewSuspicionScorer constructs a scorer that interprets wall-clock factors
// in the given location.
func NewSuspicionScorer(loc *time.Location) *SuspicionScorer {
	if loc == nil {
		loc = time.UTC
	}
	return &SuspicionScorer{loc: loc}
}

// Score evaluates every factor independently over the same input. Factors
// never short-circuit each other: a submission can trip several at once.
func (s *SuspicionScorer) Score(in SuspicionInput) domain.SuspicionFactors {
	return domain.SuspicionFactors{
		RapidVoting:       in.TimeOnPage > 0 && in.TimeOnPage < rapidVotingSeconds,
		UnusualHour:       s.isUnusualHour(in.SubmittedAt),
		NewAccount:        !in.AccountCreatedAt.IsZero() && in.SubmittedAt.Sub(in.AccountCreatedAt) < newAccountAge,
		SuspiciousClient:  isSuspiciousClient(in.UserAgent),
		RepetitivePattern: hasRepetitivePattern(in.RecentAudits),
		PreciseTiming:     in.TimeOnPage > 0 && in.TimeOnPage < preciseTimingSeconds,
		SequentialVoting:  isSequential(in.SubmittedAt, in.RecentAudits),
	}
}

// isUnusualHour reports whether the submission lands inside the overnight
// window [03:00, 06:00) in the configured location.
func (s *SuspicionScorer) isUnusualHour(at time.Time) bool {
	hour := at.In(s.loc).Hour()
	return hour >= unusualHourStart && hour < unusualHourEnd
}

// isSuspiciousClient flags automation tooling in the user agent, an empty
// user agent, and browser version tokens too new to exist in the wild.
func isSuspiciousClient(userAgent string) bool {
	if userAgent == "" {
		return true
	}
	if botClientPattern.MatchString(userAgent) {
		return true
	}
	if major, ok := browserMajorVersion(chromeVersionPattern, userAgent); ok && major > chromeVersionCeiling {
		return true
	}
	if major, ok := browserMajorVersion(firefoxVersionPattern, userAgent); ok && major > firefoxVersionCeiling {
		return true
	}
	return false
}

func browserMajorVersion(pattern *regexp.Regexp, userAgent string) (int, bool) {
	match := pattern.FindStringSubmatch(userAgent)
	if len(match) < 2 {
		return 0, false
	}
	major, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return major, true
}

// hasRepetitivePattern inspects the user's last few votes. The factor trips
// when the time-on-page values cluster tightly around their mean or the
// spent point amounts are all identical.
func hasRepetitivePattern(audits []domain.VoteAuditRecord) bool {
	if len(audits) < patternSampleSize {
		return false
	}
	sample := audits[:patternSampleSize]

	var sum float64
	identicalPoints := true
	for i, rec := range sample {
		sum += rec.TimeOnPage
		if i > 0 && rec.Points != sample[0].Points {
			identicalPoints = false
		}
	}
	if identicalPoints {
		return true
	}

	mean := sum / float64(len(sample))
	for _, rec := range sample {
		if math.Abs(rec.TimeOnPage-mean) > patternClusterRadius {
			return false
		}
	}
	return true
}

// isSequential reports whether the submission follows the user's previous
// vote within the burst window.
func isSequential(at time.Time, audits []domain.VoteAuditRecord) bool {
	if len(audits) == 0 {
		return false
	}
	gap := at.Sub(audits[0].CreatedAt)
	return gap >= 0 && gap < sequentialVoteGap
}

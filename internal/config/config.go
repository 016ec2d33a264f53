package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ifjames/kolekta-match/internal/engine"
	"github.com/ifjames/kolekta-match/internal/geo"
)

// Config holds all runtime configuration for the match engine.
type Config struct {
	Port             int
	LogLevel         string
	SpatialPrecision int
	MaxDistanceKm    float64
	CandidateLimit   int
	RankWorkers      int
	ScoreWeights     engine.ScoreWeights
	ProposalTTL      time.Duration
	ExpiryInterval   time.Duration
	NotifyTimeout    time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	precision, err := getInt("SPATIAL_PRECISION", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SPATIAL_PRECISION: %w", err)
	}
	if precision < 1 || precision > geo.MaxPrecision {
		return nil, fmt.Errorf("invalid SPATIAL_PRECISION: must be in [1, %d], got %d", geo.MaxPrecision, precision)
	}

	maxDistance, err := getFloat("MAX_DISTANCE_KM", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DISTANCE_KM: %w", err)
	}
	if maxDistance <= 0 {
		return nil, fmt.Errorf("invalid MAX_DISTANCE_KM: must be positive, got %v", maxDistance)
	}

	candidateLimit, err := getInt("CANDIDATE_LIMIT", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid CANDIDATE_LIMIT: %w", err)
	}
	if candidateLimit <= 0 {
		return nil, fmt.Errorf("invalid CANDIDATE_LIMIT: must be positive, got %d", candidateLimit)
	}

	rankWorkers, err := getInt("RANK_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid RANK_WORKERS: %w", err)
	}
	if rankWorkers <= 0 {
		return nil, fmt.Errorf("invalid RANK_WORKERS: must be positive, got %d", rankWorkers)
	}

	weights, err := loadScoreWeights()
	if err != nil {
		return nil, err
	}

	proposalTTL, err := getDuration("PROPOSAL_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid PROPOSAL_TTL: %w", err)
	}

	expiryInterval, err := getDuration("EXPIRY_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_INTERVAL: %w", err)
	}

	notifyTimeout, err := getDuration("NOTIFY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:             port,
		LogLevel:         logLevel,
		SpatialPrecision: precision,
		MaxDistanceKm:    maxDistance,
		CandidateLimit:   candidateLimit,
		RankWorkers:      rankWorkers,
		ScoreWeights:     weights,
		ProposalTTL:      proposalTTL,
		ExpiryInterval:   expiryInterval,
		NotifyTimeout:    notifyTimeout,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
	}, nil
}

// loadScoreWeights reads the ranking constants, falling back to the
// standard weights. Every weight must be non-negative.
func loadScoreWeights() (engine.ScoreWeights, error) {
	defaults := engine.DefaultScoreWeights()

	base, err := getFloat("SCORE_DISTANCE_BASE", defaults.DistanceBase)
	if err != nil {
		return engine.ScoreWeights{}, fmt.Errorf("invalid SCORE_DISTANCE_BASE: %w", err)
	}
	perKm, err := getFloat("SCORE_DISTANCE_WEIGHT", defaults.DistancePerKm)
	if err != nil {
		return engine.ScoreWeights{}, fmt.Errorf("invalid SCORE_DISTANCE_WEIGHT: %w", err)
	}
	verified, err := getFloat("SCORE_VERIFIED_BONUS", defaults.VerifiedBonus)
	if err != nil {
		return engine.ScoreWeights{}, fmt.Errorf("invalid SCORE_VERIFIED_BONUS: %w", err)
	}
	rating, err := getFloat("SCORE_RATING_WEIGHT", defaults.RatingWeight)
	if err != nil {
		return engine.ScoreWeights{}, fmt.Errorf("invalid SCORE_RATING_WEIGHT: %w", err)
	}
	freshness, err := getFloat("SCORE_FRESHNESS_HOURS", defaults.FreshnessHours)
	if err != nil {
		return engine.ScoreWeights{}, fmt.Errorf("invalid SCORE_FRESHNESS_HOURS: %w", err)
	}

	w := engine.ScoreWeights{
		DistanceBase:   base,
		DistancePerKm:  perKm,
		VerifiedBonus:  verified,
		RatingWeight:   rating,
		FreshnessHours: freshness,
	}
	if base < 0 || perKm < 0 || verified < 0 || rating < 0 || freshness < 0 {
		return engine.ScoreWeights{}, fmt.Errorf("score weights must be non-negative: %+v", w)
	}
	return w, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

package ratelimited

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// backoffPolicy computes doubling, jittered retry delays.
type backoffPolicy struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	rand      func() float64
}

// Delay returns the wait before retry number attempt (0-based). The result is
// half the capped exponential delay plus a random share of the other half, and
// never less than retryAfter (itself capped at maxDelay).
func (p backoffPolicy) Delay(attempt int, retryAfter time.Duration) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := delay / 2
	wait := time.Duration(half + half*p.rand())
	if retryAfter > p.maxDelay {
		retryAfter = p.maxDelay
	}
	if retryAfter > wait {
		wait = retryAfter
	}
	return wait
}

// cryptoFloat returns a uniform value in [0, 1).
func cryptoFloat() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0.5
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(header http.Header, now time.Time) time.Duration {
	if header == nil {
		return 0
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

type statusClass int

const (
	classSuccess statusClass = iota
	classRetryable
	classFatal
)

func classifyStatus(code int) statusClass {
	switch {
	case code >= 200 && code < 300:
		return classSuccess
	case code == http.StatusTooManyRequests, code >= 500:
		return classRetryable
	default:
		return classFatal
	}
}

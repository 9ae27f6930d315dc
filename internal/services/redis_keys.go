package services

import "time"

const (
	KeyUserSession   = "user:%d:session:%s"
	KeyUserInfo      = "user:%d:info"
	KeyCaseItems     = "case:%s:items"
	KeyDailyDrops    = "daily:%d:drops:%s" // user, yyyymmdd
	KeyRevealHistory = "user:%d:reveals"
	KeyReveal        = "reveal:%s"
	KeyRateLimit     = "ratelimit:%d:%s"

	TTLUserSession  = 24 * time.Hour
	TTLUserInfo     = 30 * 24 * time.Hour
	TTLCaseItems    = 5 * time.Minute // items are per preview session; refetches replace the set
	TTLDailyDrops   = 48 * time.Hour
	TTLReveal       = 7 * 24 * time.Hour
	MaxRevealsKept  = 100
	DailyDateLayout = "20060102"
)

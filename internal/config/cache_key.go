package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AuthContextKey returns the key holding the upstream token and user record for a console token.
func (r *CacheKeyStruct) AuthContextKey(jti string) string {
	return fmt.Sprintf("auth:%s", jti)
}

// InflightKey returns the lock key for one user's in-flight mutation of a target.
func (r *CacheKeyStruct) InflightKey(userID int, action, target string) string {
	return fmt.Sprintf("inflight:%d:%s:%s", userID, action, target)
}

// LoginRateKey returns the fixed-window counter key for login attempts from one IP.
func (r *CacheKeyStruct) LoginRateKey(ip string, window int64) string {
	return fmt.Sprintf("ratelimit:login:%s:%d", ip, window)
}

var CacheKey = NewCacheKeyStruct()

type WorkerKeyStruct struct {
	SessionAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SessionAuditQueue: "session_audit_queue",
}

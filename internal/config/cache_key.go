package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionViewKey returns the cache key for a question's materialized variant view
func (r *CacheKeyStruct) QuestionViewKey(questionID int) string {
	return fmt.Sprintf("question:%d:view", questionID)
}

// RateLimitKey returns the counter key for a client within a fixed window
func (r *CacheKeyStruct) RateLimitKey(clientIP string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", clientIP, window)
}

var CacheKey = NewCacheKeyStruct()

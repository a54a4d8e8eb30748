package cache

import "fmt"

// Key builders. Keeping them in one place prevents two features from
// colliding on a prefix.

func LockKey(resource string) string { return "lock:" + resource }

func SpinResultKey(idemKey string) string { return "spin:result:" + idemKey }

func SessionKey(token string) string { return "session:" + token }

func FreeSpinKey(playerID, gameCode string) string {
	return fmt.Sprintf("freespin:%s:%s", playerID, gameCode)
}

func RateKey(caller string, windowStart int64) string {
	return fmt.Sprintf("rate:%s:%d", caller, windowStart)
}

func AccessTokenKey(token string) string { return "token:" + token }

package kv

import "fmt"

// Key builders. All key composition lives here so the domain layer never
// concatenates or parses prefixed strings itself.
//
// Layout:
//
//	user:{telegramID}              hash    the user record
//	refcode:{code}                 string  referral code -> telegram id
//	state:{telegramID}             string  FSM (phase, data) JSON, 1h sliding TTL
//	waiting:{own}:{want}           zset    waiting bucket, score = enqueue unix time
//	chat:{telegramID}              string  "partnerID:startedUnix"
//	payment:{authority}            hash    payment record keyed by gateway token
//	referral:{invitedTelegramID}   hash    referral record
//	counter:{entity}               int     monotonic id counter

func UserKey(telegramID int64) string {
	return fmt.Sprintf("user:%d", telegramID)
}

func RefCodeKey(code string) string {
	return "refcode:" + code
}

func StateKey(telegramID int64) string {
	return fmt.Sprintf("state:%d", telegramID)
}

// WaitingBucket is the queue of users whose own gender is own and who are
// looking for want. A seeker with gender g wanting gender t scans the
// mirror bucket WaitingBucket(t, g).
func WaitingBucket(own, want string) string {
	return fmt.Sprintf("waiting:%s:%s", own, want)
}

func ChatKey(telegramID int64) string {
	return fmt.Sprintf("chat:%d", telegramID)
}

func PaymentKey(authority string) string {
	return "payment:" + authority
}

func ReferralKey(invitedTelegramID int64) string {
	return fmt.Sprintf("referral:%d", invitedTelegramID)
}

func CounterKey(entity string) string {
	return "counter:" + entity
}

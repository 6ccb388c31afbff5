package shared

import "strconv"

// Cache key builders. The exact strings are a format contract shared with
// every consumer of the cache store; change them and deployed guards break.

// CaptchaKey addresses the pending challenge for a requester identity.
func CaptchaKey(ip, userAgent string) string {
	return "captcha:" + ip + ":" + userAgent
}

// SSOKey addresses the single live token mirror for a user.
func SSOKey(userID int64) string {
	return "sso:" + strconv.FormatInt(userID, 10)
}

// BlacklistKey addresses the revocation marker for a presented token.
func BlacklistKey(token string) string {
	return "blacklist:" + token
}

// PermissionsKey addresses the cached permission set for a user.
func PermissionsKey(userID int64) string {
	return "permissions:" + strconv.FormatInt(userID, 10)
}

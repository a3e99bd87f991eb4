package models

// Bucket key builders. Keys partition the sliding windows per identity and
// endpoint class so an abusive IP cannot exhaust another caller's budget.

func IPKey(ip string, class EndpointClass) string {
	return "ip:" + ip + ":" + string(class)
}

func UserKey(userID string, class EndpointClass) string {
	return "user:" + userID + ":" + string(class)
}

// LockoutKey combines the login identifier with the source IP so an attacker
// cannot lock a victim out from a different address.
func LockoutKey(identifier, ip string) string {
	return "lockout:" + identifier + ":" + ip
}

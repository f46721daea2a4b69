package common

// WipeByteArray zeroes b in place. Passwords read from the terminal are
// wiped this way once they have been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// BearerValue formats token for the Authorization header.
func BearerValue(token string) string {
	return BearerPrefix + token
}

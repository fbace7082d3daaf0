package core

import (
	"fmt"
	"math"
	"time"
)

// MessageVersion is the only signing message version produced.
const MessageVersion = 1

// timestampLayout is the millisecond, Z-suffixed rendering wallets expect.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// MessageSettings carries the relying-party fields embedded in every message.
type MessageSettings struct {
	Domain    string
	Statement string
	URI       string
	ChainID   string
}

// Message is one outstanding sign-in challenge. Timestamps are nanoseconds
// since the Unix epoch. A Message is never mutated after NewMessage.
type Message struct {
	Domain         string `json:"domain"`
	Address        string `json:"address"`
	Statement      string `json:"statement"`
	URI            string `json:"uri"`
	Version        uint32 `json:"version"`
	ChainID        string `json:"chain_id"`
	Nonce          string `json:"nonce"`
	IssuedAt       uint64 `json:"issued_at"`
	ExpirationTime uint64 `json:"expiration_time"`
}

// NewMessage builds a challenge for address valid from now for ttl
// nanoseconds. The expiration saturates instead of wrapping.
func NewMessage(address, nonce string, now, ttl uint64, s MessageSettings) Message {
	expiration := now + ttl
	if expiration < now {
		expiration = math.MaxUint64
	}
	return Message{
		Domain:         s.Domain,
		Address:        address,
		Statement:      s.Statement,
		URI:            s.URI,
		Version:        MessageVersion,
		ChainID:        s.ChainID,
		Nonce:          nonce,
		IssuedAt:       now,
		ExpirationTime: expiration,
	}
}

// IsExpired reports whether now falls outside [IssuedAt, ExpirationTime].
// A message that is not yet valid counts as expired.
func (m Message) IsExpired(now uint64) bool {
	return now < m.IssuedAt || now > m.ExpirationTime
}

// SigningText renders the exact bytes the wallet signs. chain names the
// account family, e.g. "Solana".
func (m Message) SigningText(chain string) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your %s account:\n"+
			"%s\n"+
			"\n"+
			"%s\n"+
			"\n"+
			"URI: %s\n"+
			"Version: %d\n"+
			"Chain ID: %s\n"+
			"Nonce: %s\n"+
			"Issued At: %s\n"+
			"Expiration Time: %s",
		m.Domain, chain,
		m.Address,
		m.Statement,
		m.URI,
		m.Version,
		m.ChainID,
		m.Nonce,
		FormatTimestamp(m.IssuedAt),
		FormatTimestamp(m.ExpirationTime),
	)
}

// FormatTimestamp renders nanoseconds as a UTC ISO-8601 string with
// millisecond precision. Values past the int64 range are clamped.
func FormatTimestamp(nanos uint64) string {
	if nanos > math.MaxInt64 {
		nanos = math.MaxInt64
	}
	return time.Unix(0, int64(nanos)).UTC().Format(timestampLayout)
}

// Nanos converts a wall-clock time to unsigned nanoseconds, clamping
// pre-epoch values to zero.
func Nanos(t time.Time) uint64 {
	n := t.UnixNano()
	if n < 0 {
		return 0
	}
	return uint64(n)
}

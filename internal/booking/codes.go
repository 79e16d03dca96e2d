package booking

import (
	"crypto/rand"
	"fmt"
	"math"

	"github.com/speps/go-hashids/v2"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// Confirmation numbers avoid characters that are easy to misread (0/O, 1/I).
const (
	confirmationAlphabet     = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	ConfirmationNumberLength = 24
)

// RandomConfirmationNumber returns a crypto-random confirmation number.
// The alphabet has 32 symbols so byte%32 is unbiased.
func RandomConfirmationNumber() string {
	b := make([]byte, ConfirmationNumberLength)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = confirmationAlphabet[int(b[i])%len(confirmationAlphabet)]
	}
	return string(b)
}

// HashidsTicketCodes derives ticket codes from ticket IDs, so codes are
// unique per ticket and unguessable without the salt.
type HashidsTicketCodes struct {
	h *hashids.HashID
}

// NewHashidsTicketCodes returns a generator for the given salt.
func NewHashidsTicketCodes(salt string) (*HashidsTicketCodes, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 6
	hd.Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("ticket code generator: %w", err)
	}
	return &HashidsTicketCodes{h: h}, nil
}

// GenerateFor returns the code of ticket t.
func (g *HashidsTicketCodes) GenerateFor(t model.Ticket) (string, error) {
	if t.ID > math.MaxInt64 {
		return "", fmt.Errorf("ticket id %d out of range for a ticket code", t.ID)
	}
	return g.h.EncodeInt64([]int64{int64(t.ID)})
}

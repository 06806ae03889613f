package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. PhoneDigits holds the digit-only
// form of Phone and is what phone resolution matches against.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Phone       string    `db:"phone" json:"phone"`
	PhoneDigits string    `db:"phone_digits" json:"phone_digits"`
	PhysicianID uuid.UUID `db:"physician_id" json:"physician_id"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizePhone strips every non-digit rune from a phone number.
// "+55 (83) 99866-3089" becomes "5583998663089".
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package keybot

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegistrationKey is a single-use token gating account provisioning
type RegistrationKey struct {
	bun.BaseModel `bun:"table:keys,alias:rk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Value         string     `bun:"key,notnull,unique" json:"key"`
	Used          bool       `bun:"used,notnull" json:"used"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NewRegistrationKey returns an unused key with a fresh id
func NewRegistrationKey(value string) *RegistrationKey {
	return &RegistrationKey{
		ID:    uuid.New(),
		Value: value,
		Used:  false,
	}
}

// Credential is the password/hardware id pair provisioned for a registered
// account. Column names match the existing passwords table.
type Credential struct {
	bun.BaseModel `bun:"table:passwords,alias:pwd"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Password      string     `bun:"password,notnull" json:"password"`
	HardwareID    string     `bun:"hwid,notnull" json:"hwid"`
	LoggedIn      bool       `bun:"loggedIn,notnull" json:"loggedIn"`
	OwnerID       string     `bun:"userID,notnull" json:"userID"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NewCredential builds a logged out credential owned by ownerID
func NewCredential(password, hardwareID, ownerID string) *Credential {
	return &Credential{
		ID:         uuid.New(),
		Password:   password,
		HardwareID: hardwareID,
		LoggedIn:   false,
		OwnerID:    ownerID,
	}
}

func prepareKeyDefaults(key *RegistrationKey) {
	if key != nil && key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
}

func prepareCredentialDefaults(credential *Credential) {
	if credential != nil && credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}
}

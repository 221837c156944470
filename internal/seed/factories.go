// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"permsync/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds permission change requests and persists them to the
// database. It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	r    *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Factory{db: db, opts: opts, r: r}
}

var seedErrorCodes = []int{
	models.StatusCodeMalformedRequest,
	models.StatusCodeTargetNotFound,
	models.StatusCodeAccessDenied,
	models.StatusCodeRequestExpired,
}

func (f *Factory) randomFlag() models.PermissionFlag {
	switch f.r.Intn(3) {
	case 0:
		return models.PermissionGrant
	case 1:
		return models.PermissionRevoke
	default:
		return models.PermissionUnspecified
	}
}

func (f *Factory) randomRealm() string {
	if f.r.Float32() < 0.1 {
		return models.WildcardTarget
	}
	return fmt.Sprintf("wss://%s/sync", gofakeit.DomainName())
}

// BuildUserRequest constructs a user-targeted request without persisting it.
func (f *Factory) BuildUserRequest(overrides ...func(*models.PermissionChangeRequest)) (*models.PermissionChangeRequest, error) {
	target := gofakeit.Username()
	if f.r.Float32() < 0.05 {
		target = models.WildcardTarget
	}

	req, err := models.NewUserRequest(target, f.randomRealm(), f.randomFlag(), f.randomFlag(), f.randomFlag())
	if err != nil {
		return nil, err
	}
	req.RequestedBy = gofakeit.Username()

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.r.Intn(maxDays*24*60)) * time.Minute
	req.CreatedAt = time.Now().UTC().Add(-back)
	req.UpdatedAt = req.CreatedAt

	for _, override := range overrides {
		override(req)
	}
	return req, nil
}

// BuildMetadataRequest constructs a metadata-targeted request without
// persisting it.
func (f *Factory) BuildMetadataRequest(overrides ...func(*models.PermissionChangeRequest)) (*models.PermissionChangeRequest, error) {
	key := gofakeit.RandomString([]string{"department", "team", "role", "region", "tier"})
	value := gofakeit.Word()

	req, err := models.NewMetadataRequest(key, value, f.randomRealm(), f.randomFlag(), f.randomFlag(), f.randomFlag())
	if err != nil {
		return nil, err
	}
	req.RequestedBy = gofakeit.Username()

	for _, override := range overrides {
		override(req)
	}
	return req, nil
}

// WithTerminalStatus marks a built request as already processed by the
// authority, with a success or error outcome.
func (f *Factory) WithTerminalStatus() func(*models.PermissionChangeRequest) {
	return func(req *models.PermissionChangeRequest) {
		code := models.StatusCodeSuccess
		if f.r.Float32() < 0.3 {
			code = seedErrorCodes[f.r.Intn(len(seedErrorCodes))]
		}
		msg := gofakeit.Sentence(6)
		req.StatusCode = &code
		req.StatusMessage = &msg
		req.UpdatedAt = req.CreatedAt.Add(time.Duration(f.r.Intn(600)+1) * time.Second)
	}
}

// CreateRequestsBatch persists multiple requests in a single DB call.
func (f *Factory) CreateRequestsBatch(reqs []*models.PermissionChangeRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	return f.db.CreateInBatches(reqs, 200).Error
}

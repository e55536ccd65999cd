// Package quota implements storage admission control: whether an
// account may add bytes given its tier ceiling and current usage.
package quota

import (
	"context"
	"strings"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
)

// MaxObjectBytes is the per-object upload ceiling, independent of the
// cumulative account quota.
const MaxObjectBytes int64 = 2 << 30 // 2 GiB

// Rejection reasons. Empty means admitted.
const (
	ReasonInvalidSize    = "invalid_size"
	ReasonDisallowedType = "disallowed_type"
	ReasonFileTooLarge   = "exceeds_file_ceiling"
	ReasonQuotaExceeded  = "quota_exceeded"
)

// UsageSource computes a fresh storage snapshot for an account.
type UsageSource interface {
	Usage(ctx context.Context, accountID string) models.StorageUsage
}

// TierSource resolves an account's subscription tier.
type TierSource interface {
	Tier(ctx context.Context, accountID string) (models.Tier, error)
}

// Decision is the outcome of one admission check. Usage and LimitBytes
// are populated whenever the byte check ran, so rejections can show the
// caller where they stand.
type Decision struct {
	Allowed    bool                `json:"allowed"`
	Reason     string              `json:"reason,omitempty"`
	Usage      models.StorageUsage `json:"usage"`
	LimitBytes int64               `json:"limit_bytes"`
}

// Gate performs admission checks. It is read-only and advisory: nothing
// serializes the check against a concurrent submission, so two requests
// racing the same ceiling can both pass. That window is an accepted
// tradeoff; see DESIGN.md.
type Gate struct {
	usage UsageSource
	tiers TierSource
	log   *logger.Logger
}

func NewGate(usage UsageSource, tiers TierSource, log *logger.Logger) *Gate {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Gate{usage: usage, tiers: tiers, log: log.WithComponent("quota")}
}

// CanAdmit decides whether deltaBytes more storage fits under the
// account's ceiling. Boundary equality admits.
func (g *Gate) CanAdmit(ctx context.Context, accountID string, deltaBytes int64) Decision {
	if deltaBytes <= 0 {
		return Decision{Reason: ReasonInvalidSize}
	}

	tier, err := g.tiers.Tier(ctx, accountID)
	if err != nil {
		// Tier lookup failure must not block the request path; fall
		// back to the most restrictive ceiling.
		g.log.FromContext(ctx).Warn("tier lookup failed, assuming free tier",
			"account_id", accountID,
			"error", err.Error(),
		)
		tier = models.TierFree
	}

	usage := g.usage.Usage(ctx, accountID)
	limit := tier.LimitBytes()

	d := Decision{Usage: usage, LimitBytes: limit}
	if usage.TotalUsedBytes+deltaBytes > limit {
		d.Reason = ReasonQuotaExceeded
		return d
	}
	d.Allowed = true
	return d
}

// CanAdmitUpload runs the upload-specific gates (MIME allowlist,
// per-object ceiling) before the cumulative byte check. Each gate has
// its own rejection reason.
func (g *Gate) CanAdmitUpload(ctx context.Context, accountID string, fileSize int64, mimeType string) Decision {
	if fileSize <= 0 {
		return Decision{Reason: ReasonInvalidSize}
	}
	if !AllowedMimeType(mimeType) {
		return Decision{Reason: ReasonDisallowedType}
	}
	if fileSize > MaxObjectBytes {
		return Decision{Reason: ReasonFileTooLarge}
	}
	return g.CanAdmit(ctx, accountID, fileSize)
}

// AllowedMimeType reports whether the declared type may be uploaded.
// Only video and audio content is accepted.
func AllowedMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "video/") || strings.HasPrefix(mimeType, "audio/")
}

package analysis

import (
	"context"
	"sort"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
)

// ErrUploadHidden answers for uploads the caller does not own.
var ErrUploadHidden = apierror.New(apierror.ErrNotFound, "upload not found")

// Owners reports who owns which upload. documents.Service satisfies it.
type Owners interface {
	UploadOwner(ctx context.Context, uploadID string) (string, error)
	OwnedUploadIDs(ctx context.Context, userID string) ([]string, error)
}

// Scope is the set of uploads a caller may read. Analyses and insights
// follow the owner of their upload; admins see everything. The zero Scope
// is unrestricted.
type Scope struct {
	UserID string

	limited bool
	uploads map[string]struct{}
	single  string
}

// OwnedBy restricts a scope to the given uploads of userID.
func OwnedBy(userID string, uploadIDs ...string) Scope {
	s := Scope{UserID: userID, limited: true, uploads: make(map[string]struct{}, len(uploadIDs))}
	for _, id := range uploadIDs {
		s.uploads[id] = struct{}{}
	}
	return s
}

// SingleUpload is an unrestricted scope narrowed to one upload.
func SingleUpload(uploadID string) Scope {
	s, _ := Scope{}.Narrow(uploadID)
	return s
}

// ScopeFor resolves the scope of userID.
func ScopeFor(ctx context.Context, owners Owners, userID string, admin bool) (Scope, error) {
	if admin {
		return Scope{UserID: userID}, nil
	}
	ids, err := owners.OwnedUploadIDs(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	return OwnedBy(userID, ids...), nil
}

// RequestScope resolves the scope of the authenticated caller and narrows it
// to the uploadId query or body value when one is given. It answers the
// request itself on failure.
func RequestScope(c *gin.Context, owners Owners, uploadID string) (Scope, bool) {
	s, err := ScopeFor(c.Request.Context(), owners,
		c.GetString("userID"), c.GetString("userRole") == auth.RoleAdmin)
	if err == nil {
		s, err = s.Narrow(uploadID)
	}
	if err != nil {
		apierror.Respond(c, err)
		return Scope{}, false
	}
	return s, true
}

// Narrow limits s to one upload. An empty id leaves s unchanged.
func (s Scope) Narrow(uploadID string) (Scope, error) {
	if uploadID == "" {
		return s, nil
	}
	if !s.Allows(uploadID) {
		return Scope{}, ErrUploadHidden
	}
	return Scope{
		UserID:  s.UserID,
		limited: true,
		uploads: map[string]struct{}{uploadID: {}},
		single:  uploadID,
	}, nil
}

// Restricted reports whether s is limited to a set of uploads.
func (s Scope) Restricted() bool { return s.limited }

// UploadID is the upload s was narrowed to, or "".
func (s Scope) UploadID() string { return s.single }

func (s Scope) Allows(uploadID string) bool {
	if !s.limited {
		return true
	}
	_, ok := s.uploads[uploadID]
	return ok
}

// AllowsInsight reports whether in is visible. Cross-upload insights
// belong to whoever created them.
func (s Scope) AllowsInsight(in *Insight) bool {
	if !s.limited {
		return true
	}
	if in.UploadID != nil {
		return s.Allows(*in.UploadID)
	}
	return s.single == "" && in.UserID != nil && *in.UserID == s.UserID
}

// UploadIDs lists the allowed uploads. ok is false when s is unrestricted.
func (s Scope) UploadIDs() (ids []string, ok bool) {
	if !s.limited {
		return nil, false
	}
	ids = make([]string, 0, len(s.uploads))
	for id := range s.uploads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, true
}

// OwnerMap is an in-memory Owners keyed by upload id.
type OwnerMap map[string]string

func (m OwnerMap) UploadOwner(ctx context.Context, uploadID string) (string, error) {
	owner, ok := m[uploadID]
	if !ok {
		return "", ErrUploadHidden
	}
	return owner, nil
}

func (m OwnerMap) OwnedUploadIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	for id, owner := range m {
		if owner == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

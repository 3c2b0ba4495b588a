package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
// Keys are hashed exactly as given after trimming; callers normalise case and
// prefix the key by entity so ids never collide across kinds.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// TemplateUUID identifies the section template stored for (tenant, type).
func TemplateUUID(tenantID, sectionType string) uuid.UUID {
	return UUID("sections:template:" + strings.TrimSpace(tenantID) + ":" + strings.ToLower(strings.TrimSpace(sectionType)))
}

// SnippetUUID identifies the snippet stored for (tenant, key).
func SnippetUUID(tenantID, key string) uuid.UUID {
	return UUID("sections:snippet:" + strings.TrimSpace(tenantID) + ":" + strings.ToLower(strings.TrimSpace(key)))
}

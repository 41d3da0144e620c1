package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/starford/sprig/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note returns the hash of a note's identity, content, timestamps and parent.
// It changes whenever any of them changes and is used as the If-Match token
// for optimistic updates.
func Note(n *models.Note, parentID *int64) string {
	parent := "none"
	if parentID != nil {
		parent = fmt.Sprintf("%d", *parentID)
	}
	s := fmt.Sprintf("id:%d,title:%s,content:%s,created_at:%s,modified_at:%s,parent_id:%s",
		n.ID, n.Title, n.Content,
		n.CreatedAt.UTC().Format(time.RFC3339Nano),
		n.ModifiedAt.UTC().Format(time.RFC3339Nano),
		parent)
	return Sum([]byte(s))
}

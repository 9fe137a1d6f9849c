package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RoomImageKey builds a fresh object key for an uploaded room photo,
// scoped to the owning user.
func RoomImageKey(userID, filename string) string {
	ext := strings.ToLower(strings.TrimSpace(filenameExt(filename)))
	return fmt.Sprintf("rooms/%s/%s%s", userID, uuid.NewString(), ext)
}

// VisualKey builds a fresh object key for a generated visualization,
// scoped to the requesting user.
func VisualKey(userID string) string {
	return fmt.Sprintf("visuals/%s/%s.png", userID, uuid.NewString())
}

func filenameExt(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return filename[idx:]
}

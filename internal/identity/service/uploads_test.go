package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	id "shahid/pkg/domain"
)

func TestWriteLocalDocument(t *testing.T) {
	orig := uploadsRoot
	uploadsRoot = t.TempDir()
	t.Cleanup(func() { uploadsRoot = orig })

	userID := id.NewUserID()
	path, err := writeLocalDocument(userID, ".pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	// The stored name ties the file back to its owner.
	name := filepath.Base(path)
	require.True(t, strings.HasPrefix(name, userID.String()+"_"))
	require.True(t, strings.HasSuffix(name, ".pdf"))

	data, err := os.ReadFile(filepath.Join(uploadsRoot, path))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(data))
}

package file

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathExists(t *testing.T) {
	dir := t.TempDir()

	exists, err := PathExists(dir)
	if err != nil || !exists {
		t.Errorf("PathExists(%s) = %v, %v; want true, nil", dir, exists, err)
	}

	exists, err = PathExists(filepath.Join(dir, "nope"))
	if err != nil || exists {
		t.Errorf("PathExists(missing) = %v, %v; want false, nil", exists, err)
	}
}

func TestCreateDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")

	if err := CreateDir(nested); err != nil {
		t.Fatalf("CreateDir failed: %v", err)
	}
	if ok, _ := IsDir(nested); !ok {
		t.Errorf("IsDir(%s) = false after CreateDir", nested)
	}

	// Idempotent on an existing directory.
	if err := CreateDir(nested); err != nil {
		t.Errorf("CreateDir on existing dir failed: %v", err)
	}

	// A file in the way is an error.
	filePath := filepath.Join(dir, "occupied")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := CreateDir(filePath); err == nil {
		t.Error("CreateDir over a file should fail")
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const envExtractDir = "FSHA_EXTRACT_DIR"

// resolveExtractOut picks the directory extract writes into: the --out flag,
// then $FSHA_EXTRACT_DIR/<archive>, then ./out/<archive>. The bool reports
// whether the directory was defaulted.
func resolveExtractOut(archivePath, outFlag string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outDir := filepath.Clean(outFlag)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", false, err
		}
		return outDir, false, nil
	}

	base := strings.TrimSuffix(filepath.Base(filepath.Clean(archivePath)), filepath.Ext(archivePath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", true, fmt.Errorf("invalid archive path: %q", archivePath)
	}

	root := strings.TrimSpace(os.Getenv(envExtractDir))
	if root == "" {
		root = filepath.Join(".", "out")
	}

	outDir := filepath.Join(root, base)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", true, err
	}
	return outDir, true, nil
}

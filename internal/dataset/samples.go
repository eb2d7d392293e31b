package dataset

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"charocr/internal/classes"
	ocrimage "charocr/internal/image"
	"charocr/internal/lockfile"
)

// AddSample stores a drawn sample of cl as root/<folder>/<prefix><folder>.<n><ext>
// using the smallest free n. ext is ".bmp" or ".png". The class folder is
// locked while the name is allocated and the file written.
func (d *Dataset) AddSample(prefix string, cl classes.Class, img image.Image, ext string) (string, error) {
	if !ocrimage.HasExt("x" + ext) {
		return "", fmt.Errorf("unsupported sample extension %q", ext)
	}
	dir := filepath.Join(d.root, cl.Folder)
	release, err := lockfile.Acquire(dir, lockfile.DefaultTimeout)
	if err != nil {
		return "", err
	}
	defer release()

	base := filepath.Join(dir, prefix+cl.Folder)
	path := nextFreeName(base, ext)
	if err := ocrimage.Save(path, img); err != nil {
		return "", err
	}
	d.last = append(d.last, path)
	log.Printf("[dataset] wrote %s", path)
	return path, nil
}

// RemoveLast deletes the most recently added sample. It reports false when
// there is nothing to undo.
func (d *Dataset) RemoveLast() (bool, error) {
	if len(d.last) == 0 {
		return false, nil
	}
	path := d.last[len(d.last)-1]
	d.last = d.last[:len(d.last)-1]
	// A sample deleted by hand still counts as undone.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.last = append(d.last, path)
		return false, fmt.Errorf("failed to remove sample: %w", err)
	}
	log.Printf("[dataset] removed %s", path)
	return true, nil
}

// Added returns the sample paths that RemoveLast can still undo.
func (d *Dataset) Added() []string {
	return append([]string(nil), d.last...)
}

func nextFreeName(base, ext string) string {
	for i := 0; ; i++ {
		path := base + "." + strconv.Itoa(i) + ext
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}

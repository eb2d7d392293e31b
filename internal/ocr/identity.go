package ocr

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"

	"charocr/internal/classes"
	"charocr/internal/classifier"
)

// ModelIdentity is the persistence key of a model: the hex MD5 of the sorted
// class values concatenated, then "_" and the classifier tag. It does not
// depend on the order of the set.
func ModelIdentity(set classes.Set, typ classifier.Type) string {
	sum := md5.Sum([]byte(strings.Join(set.SortedValues(), "")))
	return hex.EncodeToString(sum[:]) + "_" + typ.Tag()
}

// ModelPath returns where the model of (set, typ) lives inside folder.
func ModelPath(folder string, set classes.Set, typ classifier.Type) string {
	return filepath.Join(folder, ModelIdentity(set, typ)+typ.Ext())
}

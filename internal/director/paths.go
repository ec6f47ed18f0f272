package director

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ProjectPath returns a timestamped project file name in dir for a document.
func ProjectPath(dir, document string, now time.Time) string {
	base := filepath.Base(document)
	name := strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), " ", "_")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", name, now.Format("2006-01-02_15-04-05")))
}

// RelativeRef expresses target relative to the directory of the project
// file, so the project keeps working when both are moved together.
func RelativeRef(projectPath, target string) string {
	absProject, err1 := filepath.Abs(projectPath)
	absTarget, err2 := filepath.Abs(target)
	if err1 != nil || err2 != nil {
		return target
	}
	rel, err := filepath.Rel(filepath.Dir(absProject), absTarget)
	if err != nil {
		return absTarget
	}
	return filepath.ToSlash(rel)
}

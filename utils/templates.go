package utils

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/edisonguo/jet"
)

// ExecuteWriteTemplateFile compiles the jet template at filePath,
// executes it against data and writes the result into w.
func ExecuteWriteTemplateFile(w io.Writer, data interface{}, filePath string) error {
	view := jet.NewSet(jet.SafeWriter(func(w io.Writer, b []byte) {
		w.Write(b)
	}), filepath.Dir(filePath), "/")

	tpl, err := view.GetTemplate(filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("Error trying to parse template document %s: %v", filePath, err)
	}

	vars := make(jet.VarMap)
	err = tpl.Execute(w, vars, data)
	if err != nil {
		return fmt.Errorf("Error executing template: %v", err)
	}
	return nil
}

package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rileyhilliard/shipr/internal/source"
)

// gatherVariables fetches project and scope variables concurrently. A failed
// fetch is logged and contributes nothing.
func (d *Deployer) gatherVariables(ctx context.Context, repo, scope string) []source.Variable {
	var project, scoped []source.Variable
	var wg sync.WaitGroup

	fetch := func(scope string, out *[]source.Variable) {
		defer wg.Done()
		vars, err := d.src.Variables(ctx, repo, scope)
		if err != nil {
			label := "project"
			if scope != "" {
				label = "scope " + scope
			}
			d.log.Warn("could not fetch %s variables for %s, continuing without them: %v", label, repo, err)
			return
		}
		*out = vars
	}

	wg.Add(1)
	go fetch("", &project)
	if scope != "" {
		wg.Add(1)
		go fetch(scope, &scoped)
	}
	wg.Wait()

	vars, dropped := splitUnsafe(mergeVariables(project, scoped))
	for _, name := range dropped {
		d.log.Warn("skipping variable %q for %s: name or value spans more than one line", name, repo)
	}
	return vars
}

// splitUnsafe drops variables that cannot be written as a single KEY=VALUE
// line and returns the names it dropped.
func splitUnsafe(vars []source.Variable) (kept []source.Variable, dropped []string) {
	for _, v := range vars {
		if strings.ContainsAny(v.Name, "=\r\n") || strings.ContainsAny(v.Value, "\r\n") {
			dropped = append(dropped, v.Name)
			continue
		}
		kept = append(kept, v)
	}
	return kept, dropped
}

// mergeVariables merges sets in order. Later sets override earlier ones on the
// same name; each name keeps the position where it first appeared.
func mergeVariables(sets ...[]source.Variable) []source.Variable {
	index := make(map[string]int)
	var out []source.Variable
	for _, set := range sets {
		for _, v := range set {
			if v.Name == "" {
				continue
			}
			if i, ok := index[v.Name]; ok {
				out[i].Value = v.Value
				continue
			}
			index[v.Name] = len(out)
			out = append(out, v)
		}
	}
	return out
}

// renderEnv serializes variables as KEY=VALUE lines.
func renderEnv(vars []source.Variable) string {
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(v.Name)
		b.WriteByte('=')
		b.WriteString(v.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// writeEnvFile writes vars to dir/name. Nothing is written for an empty set.
func writeEnvFile(dir, name string, vars []source.Variable) error {
	if len(vars) == 0 {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(renderEnv(vars)), 0o600)
}

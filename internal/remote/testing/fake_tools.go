package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/shipr/internal/util"
)

// FakeTools are stand-ins for the ssh and scp binaries. Both act on a local
// directory that plays the remote user's home, so remote.CLI can be tested
// end to end without a server.
type FakeTools struct {
	SSH  string // path of the fake ssh
	SCP  string // path of the fake scp
	Home string // the "remote" home directory
	Log  string // every invocation's arguments, one per line
}

// FakeToolsOptions tweaks fake behaviour.
type FakeToolsOptions struct {
	// RejectKey makes ssh and scp fail like a server refusing the key.
	RejectKey bool
}

const fakeSSH = `#!/bin/sh
printf 'ssh' >> %[2]s
for a in "$@"; do printf ' %%s' "$a" >> %[2]s; done
echo >> %[2]s
if [ -n "%[3]s" ]; then
  echo "deploy@host: Permission denied (publickey)." >&2
  exit 255
fi
for a in "$@"; do last=$a; done
mkdir -p %[1]s
cd %[1]s && exec sh -c "$last"
`

const fakeSCP = `#!/bin/sh
printf 'scp' >> %[2]s
for a in "$@"; do printf ' %%s' "$a" >> %[2]s; done
echo >> %[2]s
if [ -n "%[3]s" ]; then
  echo "deploy@host: Permission denied (publickey)." >&2
  echo "scp: Connection closed" >&2
  exit 255
fi
n=$#
eval src=\${$((n-1))}
eval dst=\${$n}
remote=${dst#*:}
case "$remote" in
  "~/"*) remote=${remote#"~/"} ;;
esac
case "$remote" in
  /*) dest=$remote ;;
  *) dest=%[1]s/$remote ;;
esac
if [ ! -d "$dest" ]; then
  echo "scp: $remote: No such file or directory" >&2
  exit 1
fi
cp -R "$src" "$dest"
`

// WriteFakeTools writes fake ssh and scp scripts into dir.
func WriteFakeTools(dir string, opts FakeToolsOptions) (*FakeTools, error) {
	ft := &FakeTools{
		SSH:  filepath.Join(dir, "ssh"),
		SCP:  filepath.Join(dir, "scp"),
		Home: filepath.Join(dir, "remote-home"),
		Log:  filepath.Join(dir, "calls.log"),
	}
	if err := os.MkdirAll(ft.Home, 0o755); err != nil {
		return nil, err
	}

	reject := ""
	if opts.RejectKey {
		reject = "1"
	}

	home, log := util.ShellQuote(ft.Home), util.ShellQuote(ft.Log)
	if err := os.WriteFile(ft.SSH, []byte(fmt.Sprintf(fakeSSH, home, log, reject)), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(ft.SCP, []byte(fmt.Sprintf(fakeSCP, home, log, reject)), 0o755); err != nil {
		return nil, err
	}
	return ft, nil
}

// Calls returns the logged invocations.
func (ft *FakeTools) Calls() []string {
	data, err := os.ReadFile(ft.Log)
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

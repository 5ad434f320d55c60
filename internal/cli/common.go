package cli

import (
	"flag"
	"io"
	"os"

	"github.com/mrlokans/foxtales/internal/config"
	"github.com/mrlokans/foxtales/internal/entrypoint"
)

// libraryFlags are the flags every command shares. Defaults come from the
// environment, so DATA_DIR and REMOTE_URL apply to the CLI as well.
type libraryFlags struct {
	cfg *config.Config
	out io.Writer
}

func newLibraryFlags() libraryFlags {
	return libraryFlags{cfg: config.NewConfig(), out: os.Stdout}
}

func (f *libraryFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.cfg.Storage.DataDir, "data-dir", f.cfg.Storage.DataDir, "Directory holding the local library")
	fs.StringVar(&f.cfg.Remote.URL, "remote", f.cfg.Remote.URL, "Base URL of the books server")
	fs.DurationVar(&f.cfg.Remote.Timeout, "timeout", f.cfg.Remote.Timeout, "Timeout for requests to the books server")
}

// SetOutput redirects command output.
func (f *libraryFlags) SetOutput(w io.Writer) {
	f.out = w
}

// Config exposes the resolved configuration.
func (f *libraryFlags) Config() *config.Config {
	return f.cfg
}

func (f *libraryFlags) open() (*entrypoint.App, error) {
	return entrypoint.NewApp(f.cfg)
}

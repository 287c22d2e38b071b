package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"

	"fspatch/internal/fspatch/styles"
	"fspatch/internal/image"
	"fspatch/internal/logging"
	"fspatch/internal/report"
	"fspatch/internal/resolve"
	"fspatch/internal/ui/colorize"
)

// analyze runs the configured variants over the image at path. The
// document is nil only when nothing could be resolved at all (bad config,
// unreadable file, cancellation); resolve.ErrUnresolved comes with a
// document.
func analyze(ctx context.Context, path string, only []string) (*report.Document, error) {
	variants, err := cfg.ToVariants(only...)
	if err != nil {
		return nil, err
	}

	lg := logging.NewLogger()
	defer lg.Close()

	r, err := resolve.New(variants, resolve.WithLogger(lg.Logger))
	if err != nil {
		return nil, err
	}

	img, err := image.Open(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	slog.Debug("resolving", "file", path, "size", img.Size(), "variants", len(variants))
	res, err := r.Resolve(ctx, img.Data())
	if res == nil {
		return nil, err
	}

	doc := report.Build(report.Source{
		Path:   path,
		Digest: img.Digest(),
		Size:   img.Size(),
	}, res)
	return &doc, err
}

// writeMarkdown renders md with glamour when w is a colour terminal and
// writes it raw otherwise.
func writeMarkdown(w io.Writer, md string) {
	if f, ok := w.(*os.File); ok && colorize.Enabled() && term.IsTerminal(f.Fd()) {
		width, _, err := term.GetSize(f.Fd())
		if err != nil || width <= 0 {
			width = 80
		}
		io.WriteString(w, styles.RenderMarkdown(md, width-2))
		return
	}
	io.WriteString(w, md)
}

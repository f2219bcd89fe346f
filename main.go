package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"pdf-trans/internal/config"
	"pdf-trans/internal/logger"
	"pdf-trans/internal/pdf"
	"pdf-trans/internal/viewer"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// Command line flags
var (
	pdfFlag    = flag.String("pdf", "", "PDF file to open")
	pageFlag   = flag.Int("page", 1, "Page to show, 1-indexed")
	fromFlag   = flag.String("from", "", "Source language (BCP 47 tag or auto)")
	toFlag     = flag.String("to", "", "Target language (BCP 47 tag)")
	cliFlag    = flag.Bool("cli", false, "Translate one page in the terminal without starting the GUI")
	exportFlag = flag.String("export", "", "Write the translated page to this PDF (CLI mode)")
	configFlag = flag.String("config", "", "Config file path")
)

// printHelp displays the help information for command line usage.
func printHelp() {
	fmt.Println("pdf-trans - side-by-side PDF translation viewer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pdf-trans [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --pdf <PATH>       PDF file to open")
	fmt.Println("  --page <N>         page to show, 1-indexed (default 1)")
	fmt.Println("  --from <LANG>      source language, e.g. en or auto")
	fmt.Println("  --to <LANG>        target language, e.g. ko")
	fmt.Println("  --cli              translate one page in the terminal")
	fmt.Println("  --export <PATH>    write the translated page to a PDF (with --cli)")
	fmt.Println("  --config <PATH>    config file (default ~/.config/pdf-trans/" + config.DefaultConfigFileName + ")")
	fmt.Println("  -h, --help         show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pdf-trans                                   # start the viewer")
	fmt.Println("  pdf-trans --pdf paper.pdf --page 3          # open a document at page 3")
	fmt.Println("  pdf-trans --pdf paper.pdf --cli --to ja")
	fmt.Println("  pdf-trans --pdf paper.pdf --cli --export page1_ko.pdf")
}

func main() {
	flag.Usage = printHelp
	flag.Parse()

	if *cliFlag {
		if *pdfFlag == "" {
			fmt.Fprintln(os.Stderr, "error: --cli requires --pdf")
			printHelp()
			os.Exit(1)
		}
		os.Exit(runCLI(os.Stdout, cliOptions{
			configPath: *configFlag,
			pdfPath:    *pdfFlag,
			page:       *pageFlag,
			source:     *fromFlag,
			target:     *toFlag,
			exportPath: *exportFlag,
		}))
	}

	initLogger(*configFlag, false)
	defer logger.Close()

	app, err := NewAppWithConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	app.SetWailsRuntime(true)

	startupFunc := func(ctx context.Context) {
		app.startup(ctx)
		if *pdfFlag == "" {
			return
		}
		if _, err := app.OpenPDF(*pdfFlag); err != nil {
			logger.Error("failed to open document from command line", err, logger.String("path", *pdfFlag))
			return
		}
		if *pageFlag > 1 {
			if _, err := app.GoToPage(*pageFlag - 1); err != nil {
				logger.Warn("requested page unavailable", logger.Int("page", *pageFlag), logger.Err(err))
			}
		}
		if *fromFlag != "" || *toFlag != "" {
			if err := app.SetLanguages(*fromFlag, *toFlag); err != nil {
				logger.Warn("ignoring command line languages", logger.Err(err))
			}
		}
	}

	err = wails.Run(&options.App{
		Title:  "pdf-trans",
		Width:  1280,
		Height: 860,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        startupFunc,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Error("wails run failed", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

// initLogger opens the log file and level named by the config. A config
// that cannot be read leaves the defaults in place.
func initLogger(configPath string, console bool) {
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
		return
	}
	if err := cm.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := logger.Init(cm.LoggerConfig(console)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
}

type cliOptions struct {
	configPath string
	pdfPath    string
	page       int // 1-indexed
	source     string
	target     string
	exportPath string
}

// runCLI translates one page and prints original lines and translated
// blocks. It returns the process exit code.
func runCLI(out io.Writer, opts cliOptions) int {
	initLogger(opts.configPath, false)
	defer logger.Close()

	app, err := NewAppWithConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return app.runPage(context.Background(), out, opts)
}

func (a *App) runPage(ctx context.Context, out io.Writer, opts cliOptions) int {
	a.startup(ctx)
	defer a.shutdown(ctx)

	if _, err := a.OpenPDF(opts.pdfPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	info, _ := a.GetDocumentInfo()
	fmt.Fprintf(out, "Document: %s (%d pages)\n", info.FileName, info.PageCount)
	if !info.IsTextPDF {
		fmt.Fprintln(out, "Warning: no text found on the first pages; the document may be scanned")
	}

	page := opts.page
	if page < 1 {
		page = 1
	}
	view, err := a.GoToPage(page - 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if view.Error != "" {
		fmt.Fprintf(out, "Warning: %s\n", view.Error)
	}

	if err := a.controller.SetLanguages(opts.source, opts.target); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	src, tgt := a.controller.Languages()
	fmt.Fprintf(out, "Page %d, %s -> %s\n\n", page, src, tgt)

	view, err = a.TranslatePage("", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	printPage(out, view)

	if opts.exportPath != "" {
		path, err := a.ExportPage(opts.exportPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "\nExported: %s\n", path)
	}
	a.controller.WaitPrefetch()
	return 0
}

func printPage(out io.Writer, view *viewer.PageView) {
	fmt.Fprintln(out, "== Original ==")
	for _, s := range view.Original {
		fmt.Fprintf(out, "[%s] %s\n", strings.TrimPrefix(s.ID, pdf.OriginalPrefix), s.Text)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "== Translated ==")
	for _, s := range view.Translated {
		fmt.Fprintf(out, "[%s] %s\n", strings.TrimPrefix(s.ID, pdf.TranslatedPrefix), s.Text)
	}
}

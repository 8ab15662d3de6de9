package svgkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/esimov/svgkit/utils"
	"golang.org/x/term"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

var (
	// sourceExtensions are picked up when a whole directory is converted.
	sourceExtensions = []string{".svg", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico"}
	// markupExtensions are picked up by the modes working on SVG markup only.
	markupExtensions = []string{".svg"}
)

// Ops describes where the sources are read from and where the results go.
// Src may be a file, a directory, a URL or the pipe name. Dst may be a
// file, a directory or the pipe name.
type Ops struct {
	Src, Dst, PipeName string
	Workers            int

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// result holds the outcome of a single conversion.
type result struct {
	path string
	dst  string
	out  *Output
	err  error
}

func (op *Ops) defaults() {
	if op.Stdin == nil {
		op.Stdin = os.Stdin
	}
	if op.Stdout == nil {
		op.Stdout = os.Stdout
	}
	if op.Stderr == nil {
		op.Stderr = os.Stderr
	}
}

// Execute runs the processor over the source. When the source is a
// directory its files are converted concurrently by op.Workers workers and
// the results are saved into the destination directory, keeping the
// layout of the source tree.
func (op *Ops) Execute(ctx context.Context, p *Processor) error {
	op.defaults()
	// The exporter is shared by the workers.
	p.exporter()

	if op.Dst == op.PipeName && isTerminal(op.Stdout) {
		return errors.New("`-` should be used with a pipe for stdout")
	}
	now := time.Now()

	var err error
	switch {
	case utils.IsValidUrl(op.Src):
		var f *os.File
		f, err = utils.DownloadFile(ctx, op.Src)
		if err != nil {
			return fmt.Errorf("failed to load the source image: %w", err)
		}
		defer os.Remove(f.Name())
		defer f.Close()

		err = op.executeFile(ctx, p, f, urlFilename(op.Src))
	case op.Src == op.PipeName:
		if isTerminal(op.Stdin) {
			return errors.New("`-` should be used with a pipe for stdin")
		}
		err = op.executeFile(ctx, p, op.Stdin, "")
	default:
		var fi os.FileInfo
		fi, err = os.Stat(op.Src)
		if err != nil {
			return fmt.Errorf("failed to load the source image: %w", err)
		}
		if fi.IsDir() {
			err = op.executeDir(ctx, p)
			break
		}
		var f *os.File
		f, err = os.Open(op.Src)
		if err != nil {
			return fmt.Errorf("unable to open the source file: %w", err)
		}
		defer f.Close()

		err = op.executeFile(ctx, p, f, op.Src)
	}

	if err == nil {
		fmt.Fprintf(op.Stderr, "\nExecution time: %s\n",
			utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage),
		)
	}
	return err
}

// executeFile converts a single source while showing the progress indicator.
func (op *Ops) executeFile(ctx context.Context, p *Processor, r io.Reader, name string) error {
	spinner := utils.NewSpinner(op.Stderr,
		utils.StatusLine("⇢ converting the image...", utils.DefaultMessage),
		80*time.Millisecond, isTerminal(op.Stderr),
	)
	spinner.Start()

	res := result{path: name}
	res.out, res.err = p.Process(ctx, r)
	if res.err == nil {
		spinner.SetMessage(utils.StatusLine("⇢ saving "+res.out.Name+"...", utils.DefaultMessage))
		res.dst, res.err = op.deliver(ctx, res.out, op.Dst, name)
	}

	if res.err != nil {
		spinner.StopMsg = utils.StatusLine("converting the image failed... ", utils.DefaultMessage) +
			utils.DecorateText("✘", utils.ErrorMessage) + "\n"
	} else {
		spinner.StopMsg = utils.StatusLine("⇢ ", utils.DefaultMessage) +
			utils.DecorateText("the image has been converted successfully ✔", utils.SuccessMessage) + "\n"
	}
	spinner.Stop()

	op.printOpStatus(res)
	return res.err
}

// executeDir converts the supported files of the source directory concurrently.
func (op *Ops) executeDir(ctx context.Context, p *Processor) error {
	if err := os.MkdirAll(op.Dst, 0755); err != nil {
		return fmt.Errorf("unable to create the destination directory: %w", err)
	}

	// Limit the concurrently running workers to maxWorkers.
	workers := op.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = runtime.NumCPU()
	}

	exts := sourceExtensions
	if p.Mode == ComponentMode || p.Mode == ColorsMode {
		exts = markupExtensions
	}

	ch := make(chan result)
	done := make(chan struct{})
	defer close(done)

	paths, errc := walkDir(done, op.Src, exts)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			op.consumer(ctx, p, ch, done, paths)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	var total, failed int
	for res := range ch {
		total++
		if res.err != nil {
			failed++
		}
		op.printOpStatus(res)
	}

	if err := <-errc; err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be converted", failed, total)
	}
	return nil
}

// consumer reads the path names from the paths channel, converts the files
// and sends the results on the res channel.
func (op *Ops) consumer(
	ctx context.Context,
	p *Processor,
	res chan<- result,
	done <-chan struct{},
	paths <-chan string,
) {
	for src := range paths {
		r := result{path: src}
		r.dst, r.out, r.err = op.convertFile(ctx, p, src)

		select {
		case <-done:
			return
		case res <- r:
		}
	}
}

// convertFile converts a file of the source tree into its mirror in the destination tree.
func (op *Ops) convertFile(ctx context.Context, p *Processor, src string) (string, *Output, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", nil, fmt.Errorf("unable to open the source file: %w", err)
	}
	defer f.Close()

	out, err := p.Process(ctx, f)
	if err != nil {
		return "", nil, err
	}

	dir := op.Dst
	if rel, err := filepath.Rel(op.Src, filepath.Dir(src)); err == nil {
		dir = filepath.Join(op.Dst, rel)
	}
	dst := filepath.Join(dir, stem(src)+"."+out.Ext)
	if err := (FileDeliverer{Dir: dir}).Deliver(ctx, out.Data, filepath.Base(dst), out.MIME); err != nil {
		return "", nil, err
	}
	return dst, out, nil
}

// deliver saves the output to dst and returns the path it was saved under.
func (op *Ops) deliver(ctx context.Context, out *Output, dst, src string) (string, error) {
	if dst == op.PipeName {
		return dst, WriterDeliverer{W: op.Stdout}.Deliver(ctx, out.Data, out.Name, out.MIME)
	}
	path := outputPath(dst, src, out)
	return path, FileDeliverer{Dir: filepath.Dir(path)}.Deliver(ctx, out.Data, filepath.Base(path), out.MIME)
}

// outputPath resolves the destination of a single conversion. A directory
// destination, or one without an extension, receives the file named after
// the source, or the default name of the output when the source has no
// name. The extension always follows the format actually produced.
func outputPath(dst, src string, out *Output) string {
	isDir := strings.HasSuffix(dst, string(filepath.Separator)) || filepath.Ext(dst) == ""
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		isDir = true
	}
	if isDir {
		if src == "" {
			return filepath.Join(dst, out.Name)
		}
		return filepath.Join(dst, stem(src)+"."+out.Ext)
	}
	return strings.TrimSuffix(dst, filepath.Ext(dst)) + "." + out.Ext
}

// printOpStatus displays the relevant information about a conversion.
func (op *Ops) printOpStatus(res result) {
	if res.err != nil {
		name := res.path
		if name == "" {
			name = "the source"
		}
		fmt.Fprintf(op.Stderr, "%s %s\n\t%s\n",
			utils.DecorateText("Error converting", utils.ErrorMessage),
			utils.DecorateText(filepath.Base(name), utils.DefaultMessage),
			utils.DecorateText(fmt.Sprintf("Reason: %v", res.err), utils.DefaultMessage),
		)
		return
	}
	if res.dst == op.PipeName {
		return
	}

	fmt.Fprintf(op.Stderr, "The image has been saved as: %s %s\n",
		utils.DecorateText(res.dst, utils.SuccessMessage),
		utils.DecorateText(fmt.Sprintf("(%s)", utils.FormatBytes(len(res.out.Data))), utils.DefaultMessage),
	)
	if img := res.out.Image; img != nil && img.FellBack() {
		fmt.Fprintf(op.Stderr, "\t%s\n", utils.FallbackNotice(img.Requested.String(), img.Format.String()))
	}
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported file to a new channel.
// It finishes in case the done channel is getting closed.
func walkDir(
	done <-chan struct{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !f.Mode().IsRegular() {
				return nil
			}
			if !utils.Contains(srcExts, strings.ToLower(filepath.Ext(f.Name()))) {
				return nil
			}

			select {
			case <-done:
				return errors.New("directory walk cancelled")
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// stem returns the file name without directory and extension.
func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// urlFilename returns the last path element of a URL when it looks like a file name.
func urlFilename(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if path.Ext(base) == "" {
		return ""
	}
	return base
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

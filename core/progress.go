package core

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

const barTemplate = `{{string . "name"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`

// TransferMeter is told about every file the reconciler moves.
type TransferMeter interface {
	Track(name string, size int64) Transfer
}

type Transfer interface {
	Reader(r io.Reader) io.Reader
	Writer(w io.Writer) io.Writer
	Done()
}

type nopMeter struct{}

func (nopMeter) Track(string, int64) Transfer { return nopTransfer{} }

type nopTransfer struct{}

func (nopTransfer) Reader(r io.Reader) io.Reader { return r }
func (nopTransfer) Writer(w io.Writer) io.Writer { return w }
func (nopTransfer) Done()                        {}

// BarMeter draws one progress bar per transfer.
type BarMeter struct {
	out io.Writer
}

func NewBarMeter(out io.Writer) *BarMeter {
	return &BarMeter{out: out}
}

func (m *BarMeter) Track(name string, size int64) Transfer {
	bar := pb.New64(size)
	bar.Set(pb.Bytes, true)
	bar.SetWriter(m.out)
	bar.SetTemplate(barTemplate)
	bar.Set("name", name)
	bar.Start()
	return &barTransfer{bar: bar}
}

type barTransfer struct {
	bar *pb.ProgressBar
}

func (t *barTransfer) Reader(r io.Reader) io.Reader {
	return t.bar.NewProxyReader(r)
}

func (t *barTransfer) Writer(w io.Writer) io.Writer {
	return t.bar.NewProxyWriter(w)
}

func (t *barTransfer) Done() {
	t.bar.Finish()
}

// Package form is the upload page: two preview slots, the result region and
// the error region, driven by one submission at a time.
package form

import (
	"context"
	"sync"

	"github.com/Brownie44l1/retinascan/internal/api"
	"github.com/Brownie44l1/retinascan/internal/client"
	"github.com/Brownie44l1/retinascan/internal/imaging"
)

type Predictor interface {
	Predict(ctx context.Context, sub client.Submission) (*api.PredictResponse, error)
}

// Image is a rendered preview. An empty Src means the slot is empty.
type Image struct {
	Src string
	Alt string
}

const (
	altOCT    = "OCT Scan"
	altFundus = "Fundus Image"
)

type Slot int

const (
	SlotOCT Slot = iota
	SlotFundus
)

// State is a copy of everything the page shows.
type State struct {
	OCTPreview    Image
	FundusPreview Image
	ShowResult    bool
	Result        Result
	Error         string
}

type Page struct {
	mu sync.Mutex

	predictor Predictor
	notice    *Notice

	previews   [2]Image
	showResult bool
	result     Result
}

func NewPage(p Predictor, notice *Notice) *Page {
	if notice == nil {
		notice = NewNotice(NoticeTTL)
	}
	return &Page{predictor: p, notice: notice}
}

// Preview clears the slot and, when a file with content is given, shows it
// inline as a data URL. An empty or unreadable file leaves the slot empty.
func (p *Page) Preview(slot Slot, f *client.File) {
	img := Image{}
	if f != nil && len(f.Data) > 0 {
		img = Image{Src: imaging.DataURL(f.Data), Alt: slot.alt()}
	}

	p.mu.Lock()
	p.previews[slot] = img
	p.mu.Unlock()
}

// Submit runs one prediction round trip and updates the page with its
// outcome. The returned error is the one already shown on the page.
func (p *Page) Submit(ctx context.Context, sub client.Submission) error {
	p.notice.Clear()
	p.mu.Lock()
	p.showResult = false
	p.mu.Unlock()

	resp, err := p.predictor.Predict(ctx, sub)
	if err != nil {
		p.ShowError(client.Message(err))
		return err
	}

	p.display(resp)
	return nil
}

func (p *Page) display(resp *api.PredictResponse) {
	result := Render(resp)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.showResult = true
	p.result = result

	if resp.ImageURLs == nil {
		return
	}
	if resp.ImageURLs.OCT != "" {
		p.previews[SlotOCT] = Image{Src: resp.ImageURLs.OCT, Alt: altOCT}
	}
	if resp.ImageURLs.Fundus != "" {
		p.previews[SlotFundus] = Image{Src: resp.ImageURLs.Fundus, Alt: altFundus}
	}
}

func (p *Page) ShowError(msg string) {
	p.notice.Show(msg)
}

func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		OCTPreview:    p.previews[SlotOCT],
		FundusPreview: p.previews[SlotFundus],
		ShowResult:    p.showResult,
		Result:        p.result,
		Error:         p.notice.Message(),
	}
}

func (s Slot) alt() string {
	if s == SlotFundus {
		return altFundus
	}
	return altOCT
}

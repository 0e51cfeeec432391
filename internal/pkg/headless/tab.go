package headless

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Tab is one isolated browsing context used for a single capture.
type Tab interface {
	Attach(ctx context.Context) error
	EmulatePrintMedia(ctx context.Context) error
	PrintToPDF(ctx context.Context, params PrintParams) ([]byte, error)
	Detach(ctx context.Context) error
	Close(ctx context.Context) error
}

// PrintParams are the page.printToPDF parameters, sizes in inches.
type PrintParams struct {
	PrintBackground   bool
	PaperWidth        float64
	PaperHeight       float64
	Margin            float64
	PreferCSSPageSize bool
}

// A4 is the fixed capture layout: A4 paper, 0.4in margins, backgrounds on,
// CSS page size preferred when the document declares one.
var A4 = PrintParams{
	PrintBackground:   true,
	PaperWidth:        8.27,
	PaperHeight:       11.69,
	Margin:            0.4,
	PreferCSSPageSize: true,
}

type tab struct {
	browser  *rod.Browser
	targetID proto.TargetTargetID
	page     *rod.Page
}

func (t *tab) Attach(ctx context.Context) error {
	page, err := t.browser.Context(ctx).PageFromTarget(t.targetID)
	if err != nil {
		return err
	}
	t.page = page
	return nil
}

func (t *tab) EmulatePrintMedia(ctx context.Context) error {
	if t.page == nil {
		return ErrNotAttached
	}
	return proto.EmulationSetEmulatedMedia{Media: "print"}.Call(t.page.Context(ctx))
}

func (t *tab) PrintToPDF(ctx context.Context, params PrintParams) ([]byte, error) {
	if t.page == nil {
		return nil, ErrNotAttached
	}

	res, err := proto.PagePrintToPDF{
		PrintBackground:   params.PrintBackground,
		PaperWidth:        &params.PaperWidth,
		PaperHeight:       &params.PaperHeight,
		MarginTop:         &params.Margin,
		MarginBottom:      &params.Margin,
		MarginLeft:        &params.Margin,
		MarginRight:       &params.Margin,
		PreferCSSPageSize: params.PreferCSSPageSize,
	}.Call(t.page.Context(ctx))
	if err != nil {
		return nil, err
	}

	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%w: empty print result", ErrNoData)
	}

	return res.Data, nil
}

func (t *tab) Detach(ctx context.Context) error {
	if t.page == nil {
		return nil
	}
	return proto.TargetDetachFromTarget{SessionID: t.page.SessionID}.Call(t.browser.Context(ctx))
}

func (t *tab) Close(ctx context.Context) error {
	_, err := proto.TargetCloseTarget{TargetID: t.targetID}.Call(t.browser.Context(ctx))
	return err
}

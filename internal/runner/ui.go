package runner

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

func (a *App) createMainInterface() *fyne.Container {
	title := widget.NewLabel("XK852 Terminal")
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	a.portSelect = widget.NewSelect(nil, a.onPortSelected)
	a.portSelect.PlaceHolder = "(select port)"

	a.connectButton = widget.NewButton("Connect", a.onConnectClick)
	a.pttButton = widget.NewButton("PTT", a.onPTTClick)
	a.captureButton = widget.NewButton("Capture", a.onCaptureClick)

	a.freqInput = widget.NewEntry()
	a.freqInput.SetPlaceHolder("Frequency (Hz)")
	a.freqInput.OnSubmitted = a.onFrequencySubmit

	a.logView = widget.NewMultiLineEntry()
	a.logView.Wrapping = fyne.TextWrapWord

	a.statusDisplay = widget.NewLabel("disconnected")
	a.statusDisplay.Alignment = fyne.TextAlignCenter

	controls := container.NewHBox(
		a.connectButton,
		a.pttButton,
		a.captureButton,
	)

	top := container.NewVBox(
		title,
		widget.NewSeparator(),
		a.portSelect,
		controls,
		a.freqInput,
		a.statusDisplay,
	)

	return container.NewBorder(top, nil, nil, nil, a.logView)
}

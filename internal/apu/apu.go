// Package apu implements the NES's 2A03 audio processing unit: two
// pulse channels, a triangle channel, a noise channel, a delta
// modulation channel, the frame sequencer that clocks their envelope,
// sweep and length units, and the non-linear mixer that combines them
// into a single sample stream.
package apu

import "nescore/internal/savestate"

// DMAFunc requests a DMC sample-byte fetch from the console's DMA
// arbiter. addr is the byte to read; onByte is called once the byte
// arrives, which may be several CPU cycles later if OAM DMA is also
// in flight.
type DMAFunc func(addr uint16, onByte func(val uint8))

// APU holds all five channels and the frame sequencer that drives
// them.
type APU struct {
	pulse1   pulseChannel
	pulse2   triangleAwarePulse
	triangle triangleChannel
	noise    noiseChannel
	dmc      dmcChannel

	channelEnable [5]bool

	frameCycle     uint16
	frameMode      bool // false = 4-step, true = 5-step
	frameIRQEnable bool
	frameIRQFlag   bool
	// resetPending is not used by the sequencer: writeFrameCounter
	// resets frameCycle on the same CPU cycle as the $4017 write, with
	// no delay.
	resetPending int

	requestDMA DMAFunc

	sampleRate       int
	cpuFrequency     float64
	cycleAccumulator float64
	sampleBuffer     []float32

	cycles uint64
}

// triangleAwarePulse is just pulseChannel; named separately only so
// New can document that pulse2 uses two's-complement sweep math while
// pulse1 uses one's-complement, mirrored in clockSweep's isPulse1 flag.
type triangleAwarePulse = pulseChannel

// New creates an APU with power-on register state: frame IRQ enabled,
// 4-step sequencer mode, silence on every channel.
func New() *APU {
	a := &APU{
		sampleRate:     44100,
		cpuFrequency:   1789773.0,
		frameIRQEnable: true,
		sampleBuffer:   make([]float32, 0, 4096),
	}
	a.noise.shiftRegister = 1
	return a
}

// SetDMAFunc wires the console's DMA arbiter into the DMC channel;
// without it the DMC channel silently never refills its sample
// buffer, which is harmless for games that don't use DMC playback but
// wrong for games that do.
func (a *APU) SetDMAFunc(fn DMAFunc) { a.requestDMA = fn; a.dmc.requestDMA = fn }

// SetSampleRate changes the target output sample rate.
func (a *APU) SetSampleRate(rate int) {
	a.sampleRate = rate
	a.cycleAccumulator = 0
}

// Reset restores power-on state without losing the DMA hookup.
func (a *APU) Reset() {
	dma := a.requestDMA
	rate := a.sampleRate
	*a = *New()
	a.sampleRate = rate
	a.SetDMAFunc(dma)
}

// Step advances every channel timer by one CPU cycle, clocks the
// frame sequencer, and appends a mixed sample to the output buffer
// whenever the sample-rate accumulator rolls over.
func (a *APU) Step() {
	a.cycles++
	a.stepFrameSequencer()

	if a.channelEnable[0] {
		a.pulse1.stepTimer()
	}
	if a.channelEnable[1] {
		a.pulse2.stepTimer()
	}
	if a.channelEnable[2] {
		a.triangle.stepTimer()
	}
	if a.channelEnable[3] {
		a.noise.stepTimer()
	}
	if a.channelEnable[4] {
		a.dmc.stepTimer()
	}

	a.generateSample()
}

// frameSequence holds, for 4-step and 5-step mode, the CPU-cycle
// offsets at which the quarter-frame (envelope/linear) and
// half-frame (length/sweep) units clock, matching the real APU's
// 29829/37281-cycle sequencer periods.
const (
	step4Quarter1 = 7457
	step4Half1    = 14913
	step4Quarter2 = 14913
	step4Quarter3 = 22371
	step4Last     = 29829

	step5Quarter1 = 7457
	step5Half1    = 14913
	step5Quarter3 = 22371
	step5Last     = 37281
)

func (a *APU) stepFrameSequencer() {
	a.frameCycle++

	if a.frameMode {
		switch a.frameCycle {
		case step5Quarter1:
			a.clockQuarterFrame()
		case step5Half1:
			a.clockQuarterFrame()
			a.clockHalfFrame()
		case step5Quarter3:
			a.clockQuarterFrame()
		case step5Last:
			a.clockQuarterFrame()
			a.clockHalfFrame()
			a.frameCycle = 0
		}
		return
	}

	switch a.frameCycle {
	case step4Quarter1:
		a.clockQuarterFrame()
	case step4Half1:
		a.clockQuarterFrame()
		a.clockHalfFrame()
	case step4Quarter3:
		a.clockQuarterFrame()
	case step4Last:
		a.clockQuarterFrame()
		a.clockHalfFrame()
		if a.frameIRQEnable {
			a.frameIRQFlag = true
		}
		a.frameCycle = 0
	}
}

func (a *APU) clockQuarterFrame() {
	a.pulse1.clockEnvelope()
	a.pulse2.clockEnvelope()
	a.noise.clockEnvelope()
	a.triangle.clockLinear()
}

func (a *APU) clockHalfFrame() {
	a.pulse1.clockLength()
	a.pulse1.clockSweep(true)
	a.pulse2.clockLength()
	a.pulse2.clockSweep(false)
	a.triangle.clockLength()
	a.noise.clockLength()
}

func (a *APU) generateSample() {
	a.cycleAccumulator += float64(a.sampleRate) / a.cpuFrequency
	if a.cycleAccumulator < 1.0 {
		return
	}
	a.cycleAccumulator -= 1.0

	p1 := a.pulse1.output()
	p2 := a.pulse2.output()
	tri := a.triangle.output()
	noi := a.noise.output()
	dmc := a.dmc.outputLevel

	a.sampleBuffer = append(a.sampleBuffer, mix(p1, p2, tri, noi, dmc))
}

// mix applies the NES's two non-linear summing networks, pulse and
// triangle-noise-DMC, and scales the result to [-1, 1].
func mix(pulse1, pulse2, triangle, noise, dmc uint8) float32 {
	pulseSum := float64(pulse1) + float64(pulse2)
	var pulseOut float64
	if pulseSum != 0 {
		pulseOut = 95.88 / (8128.0/pulseSum + 100.0)
	}

	tndSum := float64(triangle)/8227.0 + float64(noise)/12241.0 + float64(dmc)/22638.0
	var tndOut float64
	if tndSum != 0 {
		tndOut = 159.79 / (1.0/tndSum + 100.0)
	}

	return float32((pulseOut+tndOut)*2.0 - 1.0)
}

// GetSamples drains and returns the accumulated output buffer.
func (a *APU) GetSamples() []float32 {
	out := make([]float32, len(a.sampleBuffer))
	copy(out, a.sampleBuffer)
	a.sampleBuffer = a.sampleBuffer[:0]
	return out
}

// WriteRegister dispatches a CPU write in the $4000-$4017 APU range.
func (a *APU) WriteRegister(addr uint16, val uint8) {
	switch addr {
	case 0x4000:
		a.pulse1.writeControl(val)
	case 0x4001:
		a.pulse1.writeSweep(val)
	case 0x4002:
		a.pulse1.writeTimerLow(val)
	case 0x4003:
		a.pulse1.writeTimerHigh(val)

	case 0x4004:
		a.pulse2.writeControl(val)
	case 0x4005:
		a.pulse2.writeSweep(val)
	case 0x4006:
		a.pulse2.writeTimerLow(val)
	case 0x4007:
		a.pulse2.writeTimerHigh(val)

	case 0x4008:
		a.triangle.writeControl(val)
	case 0x400A:
		a.triangle.writeTimerLow(val)
	case 0x400B:
		a.triangle.writeTimerHigh(val)

	case 0x400C:
		a.noise.writeControl(val)
	case 0x400E:
		a.noise.writePeriod(val)
	case 0x400F:
		a.noise.writeLength(val)

	case 0x4010:
		a.dmc.writeControl(val)
	case 0x4011:
		a.dmc.writeDirectLoad(val)
	case 0x4012:
		a.dmc.writeSampleAddress(val)
	case 0x4013:
		a.dmc.writeSampleLength(val)

	case 0x4015:
		a.writeChannelEnable(val)
	case 0x4017:
		a.writeFrameCounter(val)
	}
}

func (a *APU) writeChannelEnable(val uint8) {
	a.channelEnable[0] = val&0x01 != 0
	a.channelEnable[1] = val&0x02 != 0
	a.channelEnable[2] = val&0x04 != 0
	a.channelEnable[3] = val&0x08 != 0
	a.channelEnable[4] = val&0x10 != 0

	if !a.channelEnable[0] {
		a.pulse1.lengthCounter = 0
	}
	if !a.channelEnable[1] {
		a.pulse2.lengthCounter = 0
	}
	if !a.channelEnable[2] {
		a.triangle.lengthCounter = 0
	}
	if !a.channelEnable[3] {
		a.noise.lengthCounter = 0
	}
	if !a.channelEnable[4] {
		a.dmc.bytesRemaining = 0
	} else if a.dmc.bytesRemaining == 0 {
		a.dmc.restart()
	}
	a.dmc.irqFlag = false
}

// writeFrameCounter handles $4017: selecting 4-step or 5-step mode,
// disabling the frame IRQ, and the well-known quirk that writing 5-step
// mode immediately clocks every unit once.
func (a *APU) writeFrameCounter(val uint8) {
	a.frameMode = val&0x80 != 0
	a.frameIRQEnable = val&0x40 == 0
	if !a.frameIRQEnable {
		a.frameIRQFlag = false
	}
	a.frameCycle = 0
	if a.frameMode {
		a.clockQuarterFrame()
		a.clockHalfFrame()
	}
}

// ReadStatus reads $4015, reporting each channel's length-counter
// activity and the two IRQ flags, clearing the frame IRQ flag as a
// side effect.
func (a *APU) ReadStatus() uint8 {
	var status uint8
	if a.pulse1.lengthCounter > 0 {
		status |= 0x01
	}
	if a.pulse2.lengthCounter > 0 {
		status |= 0x02
	}
	if a.triangle.lengthCounter > 0 {
		status |= 0x04
	}
	if a.noise.lengthCounter > 0 {
		status |= 0x08
	}
	if a.dmc.bytesRemaining > 0 {
		status |= 0x10
	}
	if a.frameIRQFlag {
		status |= 0x40
	}
	if a.dmc.irqFlag {
		status |= 0x80
	}
	a.frameIRQFlag = false
	return status
}

// IRQ reports whether either the frame sequencer or the DMC channel
// is asserting the APU's shared IRQ line.
func (a *APU) IRQ() bool {
	return a.frameIRQFlag || a.dmc.irqFlag
}

func (a *APU) EncodeState(e *savestate.Encoder) {
	a.pulse1.encodeState(e)
	a.pulse2.encodeState(e)
	a.triangle.encodeState(e)
	a.noise.encodeState(e)
	a.dmc.encodeState(e)
	for _, v := range a.channelEnable {
		e.Bool(v)
	}
	e.U16(a.frameCycle)
	e.Bool(a.frameMode)
	e.Bool(a.frameIRQEnable)
	e.Bool(a.frameIRQFlag)
}

func (a *APU) DecodeState(d *savestate.Decoder) {
	a.pulse1.decodeState(d)
	a.pulse2.decodeState(d)
	a.triangle.decodeState(d)
	a.noise.decodeState(d)
	a.dmc.decodeState(d)
	for i := range a.channelEnable {
		a.channelEnable[i] = d.Bool()
	}
	a.frameCycle = d.U16()
	a.frameMode = d.Bool()
	a.frameIRQEnable = d.Bool()
	a.frameIRQFlag = d.Bool()
}

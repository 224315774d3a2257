// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package fixtureprofile

import "github.com/pierrej/lightboard-core/internal/knob"

func init() {
	Register(dimmerProfile())
	Register(rgbProfile())
	Register(rgbwProfile())
	Register(movingHeadProfile())
}

// dimmerProfile is a single-channel intensity fixture: one unipolar
// "level" control rendered straight onto the channel byte.
func dimmerProfile() *Profile {
	return &Profile{
		Name:         "dimmer",
		Description:  "single-channel intensity",
		ChannelCount: 1,
		MakeControls: func() []Control {
			return []Control{{Name: "level", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)}}
		},
		Render: func(controls []Control, out []byte) {
			if len(controls) < 1 || len(out) < 1 {
				return
			}
			out[0] = controls[0].Value.Sample.ToByte()
		},
	}
}

// rgbProfile is a three-channel color fixture.
func rgbProfile() *Profile {
	return &Profile{
		Name:         "rgb",
		Description:  "3-channel RGB",
		ChannelCount: 3,
		MakeControls: func() []Control {
			return []Control{
				{Name: "red", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
				{Name: "green", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
				{Name: "blue", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
			}
		},
		Render: func(controls []Control, out []byte) {
			renderUnipolarChannels(controls, out)
		},
	}
}

// rgbwProfile adds a dedicated white channel to rgbProfile.
func rgbwProfile() *Profile {
	return &Profile{
		Name:         "rgbw",
		Description:  "4-channel RGB+white",
		ChannelCount: 4,
		MakeControls: func() []Control {
			return []Control{
				{Name: "red", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
				{Name: "green", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
				{Name: "blue", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
				{Name: "white", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
			}
		},
		Render: func(controls []Control, out []byte) {
			renderUnipolarChannels(controls, out)
		},
	}
}

// movingHeadProfile: pan/tilt as bipolar (re-centered at zero) plus a
// dimmer channel, a slightly richer fixture to exercise bipolar control
// coercion during patch render.
func movingHeadProfile() *Profile {
	return &Profile{
		Name:         "moving_head",
		Description:  "pan/tilt + dimmer",
		ChannelCount: 3,
		MakeControls: func() []Control {
			return []Control{
				{Name: "pan", Datatype: knob.DatatypeBipolar, Value: knob.BipolarValue(0)},
				{Name: "tilt", Datatype: knob.DatatypeBipolar, Value: knob.BipolarValue(0)},
				{Name: "dimmer", Datatype: knob.DatatypeUnipolar, Value: knob.UnipolarValue(0)},
			}
		},
		Render: func(controls []Control, out []byte) {
			if len(controls) < 3 || len(out) < 3 {
				return
			}
			out[0] = bipolarToByte(controls[0].Value.Sample.Value)
			out[1] = bipolarToByte(controls[1].Value.Sample.Value)
			out[2] = controls[2].Value.Sample.ToByte()
		},
	}
}

// renderUnipolarChannels writes each control's clamped unipolar value onto
// the matching output byte, in order.
func renderUnipolarChannels(controls []Control, out []byte) {
	n := len(controls)
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = controls[i].Value.Sample.ToByte()
	}
}

// bipolarToByte maps [-1,1] onto the full 0-255 range, centered at 127/128.
func bipolarToByte(v float64) byte {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return byte((v+1)/2*255.0 + 0.5)
}

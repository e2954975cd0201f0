// Package transcript converts raw caption payloads into ordered timed entries.
//
// Parse accepts cue-based text (WebVTT and the SRT variant), YouTube-style
// json3 event lists, and a plain line list fallback. Auto detection inspects
// the payload: a leading '{' selects json3, a WEBVTT header or any "-->" line
// selects the cue parser, anything else is treated as plain lines with a
// synthetic five-second cadence.
package transcript

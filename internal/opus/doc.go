// Package opus handles the framing of Opus audio for Discord voice playback.
//
// Processed audio is stored in a minimal binary format: concatenated
// length-prefixed frames ([uint16 LE length][opus bytes]). No headers, no
// metadata. Cache blobs, disk-tier files, and the voice send path all use it.
//
// Reframe converts the ogg/opus stream FFmpeg produces into this format.
// FrameReader reads it back one frame at a time.
package opus

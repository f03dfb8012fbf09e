package avcore

// PictureSink receives presented pictures on the render side. It owns GPU
// upload and drawing. The rgba slice is only valid for the duration of the
// call; implementations copy what they keep.
type PictureSink interface {
	UpdatePicture(width, height int, rgba []byte)
}

// AudioSink receives PCM chunks in the engine output format and queues them
// for device playback. Ownership of pcm passes to the sink.
type AudioSink interface {
	QueueSamples(pcm []byte)

	// ClearQueue drops everything queued but not yet played.
	ClearQueue()
}

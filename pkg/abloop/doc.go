// ABOUTME: Package doc for the public player API
// ABOUTME: Entry point for embedding loop playback in an application
//
// Package abloop provides seamless A-B loop playback of decoded media.
//
// A Player decodes WAV, MP3, FLAC, or Ogg Vorbis bytes and plays them
// through one of three loop engines: a sample-accurate per-sample
// renderer, a lookahead buffer scheduler, and a crossfading engine
// that hides the loop seam and adds pitch shifting. Loop points can be
// moved while audio is playing without an audible gap at the seam.
//
//	player := abloop.New(abloop.Config{
//		OnTimeUpdate: func(s float64) { fmt.Printf("\r%.1fs", s) },
//	})
//	defer player.Close()
//
//	duration, err := player.Load(fileBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//	player.SetLoopPoints(12.5, 18.0)
//	player.SetLooping(true)
//	player.Play()
package abloop

// Package capture drives a V4L2 capture device through the memory-mapped
// streaming lifecycle: format negotiation, buffer pool setup, the
// enqueue/dequeue cycle and teardown.
//
// A Session is created by a Builder and moves through the states
//
//	Opened -> Prepared -> Streaming -> Stopped -> Prepared ...
//
// and ends in Closed. Every frame taken with TakeFrame must be handed back with
// ReturnFrame before the driver can fill that buffer again:
//
//	s, err := capture.WithDevice("/dev/video0").
//	    VideoSize(1920, 1080).
//	    PixelFormat(v4l2.PixFmtYUYV).
//	    Open()
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.Prepare(4); err != nil {
//	    return err
//	}
//	if err := s.Start(); err != nil {
//	    return err
//	}
//	for {
//	    frame, err := s.TakeFrame()
//	    if err != nil {
//	        return err
//	    }
//	    process(frame.Bytes())
//	    if err := s.ReturnFrame(frame); err != nil {
//	        return err
//	    }
//	}
//
// A Session is not safe for concurrent use. TakeFrame blocks until the driver
// delivers a frame; callers that need a deadline use Wait first.
package capture

// Package winfault provides programmatic access to the crash-triage engine:
// crash-dump extraction, event-log decoding, crash-window correlation, and
// optional LLM root-cause analysis.
//
// Quick start:
//
//	wf, err := winfault.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	crash, _ := wf.ExtractCrash(ctx, "crash.dmp")
//	events, _, _ := wf.DecodeEvents("System.evtx", "Application.evtx")
//	selected, timeline := wf.Correlate(crash, events, 3600)
//	fmt.Println(strings.Join(timeline, "\n"))
//
// A Winfault instance is safe for concurrent use. Extraction of non-minidump
// files shells out to a WinDbg debugger; configure its location with
// WithDebugger.
package winfault

// Package prof captures pprof profiles of the lcd2usbd daemon.
//
// The busy-flag polling in the bus driver is the daemon's only hot loop;
// a CPU profile taken while the host streams text shows how much time the
// driver spends waiting on the controllers:
//
//	stop, err := prof.StartCPU("cpu.prof")
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
// Snapshot profiles are written with [Write]:
//
//	prof.Write(prof.ProfileGoroutine, "goroutine.prof")
package prof

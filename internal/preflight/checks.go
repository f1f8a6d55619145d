package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ueventPath exists on kernels that publish udev events over netlink.
const ueventPath = "/sys/kernel/uevent_seqnum"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBindAvailable verifies that nothing else is listening on bind. The
// probe listener is closed immediately.
func CheckBindAvailable(ctx context.Context, name, bind string) Result {
	lc := net.ListenConfig{}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	listener, err := lc.Listen(checkCtx, "tcp", bind)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: address already in use)", bind)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", bind, err)}
	}
	_ = listener.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (available)", bind)}
}

// CheckNetlink verifies the kernel exposes udev events.
func CheckNetlink() Result {
	const name = "Presence (netlink)"
	if err := unix.Access(ueventPath, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("uevents unavailable (%v); manual triggers only", err)}
	}
	return Result{Name: name, Passed: true, Detail: "uevents readable"}
}

package supervisor

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"shellboot/internal/reporting"
	"shellboot/pkg/logging"
)

// statusPrefix marks stdout lines a child emits to report its startup
// phase: "status: <phase> [port=<n>] [detail...]".
const statusPrefix = "status:"

// managedProcess tracks one running child and its teardown channel.
type managedProcess struct {
	name     string
	pid      int
	stopChan chan struct{}

	mu       sync.Mutex
	boundPrt int
	running  bool
	stopOnce sync.Once
}

func (p *managedProcess) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *managedProcess) setRunning(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = v
}

func (p *managedProcess) port() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.boundPrt
}

func (p *managedProcess) setPort(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boundPrt = port
}

func (p *managedProcess) stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

// spawn starts the child in its own process group and wires its pipes into
// the progress bus. The returned process is already running.
func spawn(def ProcessDefinition, port int, bus *reporting.Bus) (*managedProcess, error) {
	cmd := exec.Command(def.Command[0], def.Command[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = os.Environ()
	if port > 0 {
		cmd.Env = append(cmd.Env, fmt.Sprintf("SHELLBOOT_PORT=%d", port))
	}
	for k, v := range def.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", def.Name, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdoutPipe.Close()
		return nil, fmt.Errorf("stderr pipe for %s: %w", def.Name, err)
	}

	if err := cmd.Start(); err != nil {
		stdoutPipe.Close()
		stderrPipe.Close()
		return nil, err
	}

	proc := &managedProcess{
		name:     def.Name,
		pid:      cmd.Process.Pid,
		stopChan: make(chan struct{}),
		running:  true,
	}

	go func() {
		defer stdoutPipe.Close()
		defer stderrPipe.Close()

		go func() {
			scanner := bufio.NewScanner(stdoutPipe)
			for scanner.Scan() {
				line := scanner.Text()
				if ev, ok := parseStatusLine(def.Name, line); ok {
					if ev.Port > 0 {
						proc.setPort(ev.Port)
					}
					bus.Publish(ev)
					continue
				}
				logging.Debug("Supervisor", "[%s stdout] %s", def.Name, line)
			}
		}()

		go func() {
			scanner := bufio.NewScanner(stderrPipe)
			for scanner.Scan() {
				logging.Debug("Supervisor", "[%s stderr] %s", def.Name, scanner.Text())
			}
		}()

		processDone := make(chan error, 1)
		go func() { processDone <- cmd.Wait() }()

		select {
		case err := <-processDone:
			proc.setRunning(false)
			if err != nil {
				logging.Error("Supervisor", err, "Process %s (PID %d) exited with error", def.Name, proc.pid)
				bus.Publish(reporting.NewProgressEvent(def.Name, reporting.StatusFailed).WithError(err))
			} else {
				logging.Info("Supervisor", "Process %s (PID %d) exited", def.Name, proc.pid)
				bus.Publish(reporting.NewProgressEvent(def.Name, reporting.StatusExited))
			}

		case <-proc.stopChan:
			if cmd.ProcessState == nil || !cmd.ProcessState.Exited() {
				// Kill the whole process group so helpers die with the parent.
				if err := syscall.Kill(-proc.pid, syscall.SIGKILL); err != nil {
					logging.Error("Supervisor", err, "Failed to kill process %s (PID %d)", def.Name, proc.pid)
				}
				<-processDone
			}
			proc.setRunning(false)
			bus.Publish(reporting.NewProgressEvent(def.Name, reporting.StatusExited).WithMessage("stopped"))
		}
	}()

	return proc, nil
}

// parseStatusLine turns a child's status line into a progress event.
// Unknown phases and malformed lines are rejected so a chatty child cannot
// inject bogus progress.
func parseStatusLine(service, line string) (reporting.ProgressEvent, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, statusPrefix) {
		return reporting.ProgressEvent{}, false
	}

	fields := strings.Fields(strings.TrimPrefix(trimmed, statusPrefix))
	if len(fields) == 0 {
		return reporting.ProgressEvent{}, false
	}

	status := reporting.Status(fields[0])
	if !reporting.KnownStatus(status) {
		return reporting.ProgressEvent{}, false
	}

	ev := reporting.NewProgressEvent(service, status)
	var msgParts []string
	for _, field := range fields[1:] {
		if rest, ok := strings.CutPrefix(field, "port="); ok {
			if port, err := strconv.Atoi(rest); err == nil && port > 0 && port <= 65535 {
				ev = ev.WithPort(port)
			}
			continue
		}
		msgParts = append(msgParts, field)
	}
	if len(msgParts) > 0 {
		ev = ev.WithMessage(strings.Join(msgParts, " "))
	}
	return ev, true
}

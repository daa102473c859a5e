package interrupt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"mipscore/emu/devices"
	"mipscore/emu/machine"
)

// SyscallError reports a bad syscall code or an operation the table does
// not support, per spec's error taxonomy - routed through the controller
// like any other exception rather than panicking the engine.
type SyscallError struct {
	Code int
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("unsupported syscall %d", e.Code)
}

// syscallMem is the subset of memory.Memory the syscall table needs to
// read/write program-visible bytes for string and buffer syscalls.
type syscallMem interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, v uint8) error
}

const (
	regV0 = 2
	regV1 = 3
	regA0 = 4
	regA1 = 5
	regA2 = 6
)

// Syscalls is the MARS-compatible subset of the SPIM/MARS syscall table:
// console I/O through a Terminal, file I/O through a FileTable, and a
// simple bump-pointer sbrk heap.
type Syscalls struct {
	term      *devices.Terminal
	files     *devices.FileTable
	stdin     *bufio.Reader
	heapBreak uint32
	rand      [1]devices.RandomStream
}

// NewSyscalls returns a syscall table writing console output to term,
// reading console input from stdin, and routing file syscalls through
// files. heapBase is the initial value returned by the first sbrk(0).
func NewSyscalls(term *devices.Terminal, files *devices.FileTable, stdin io.Reader, heapBase uint32) *Syscalls {
	return &Syscalls{
		term:      term,
		files:     files,
		stdin:     bufio.NewReader(stdin),
		heapBreak: heapBase,
	}
}

// Dispatch services one syscall request, using $v0's code (already placed
// in req.Code by the caller) and reading/writing argument registers $a0-
// $a2 and result registers $v0/$v1 directly on st.
func (s *Syscalls) Dispatch(code int, st *machine.State, mem syscallMem) error {
	switch code {
	case 1: // print_int
		s.print(fmt.Sprintf("%d", int32(st.GPR(regA0))))
	case 2: // print_float
		s.print(strconv.FormatFloat(float64(st.FPSingleFloat(12)), 'g', -1, 32))
	case 3: // print_double
		s.print(strconv.FormatFloat(st.FPDoubleFloat(12), 'g', -1, 64))
	case 4: // print_string
		str, err := readCString(mem, st.GPR(regA0))
		if err != nil {
			return err
		}
		s.print(str)
	case 5: // read_int
		v, err := s.readLine()
		if err != nil {
			return err
		}
		n, _ := strconv.ParseInt(v, 10, 32)
		st.SetGPR(regV0, uint32(int32(n)))
	case 8: // read_string
		addr, maxLen := st.GPR(regA0), int(st.GPR(regA1))
		line, _ := s.readLine()
		if len(line) > maxLen-1 {
			line = line[:maxLen-1]
		}
		for i := 0; i < len(line); i++ {
			if err := mem.WriteByte(addr+uint32(i), line[i]); err != nil {
				return err
			}
		}
		_ = mem.WriteByte(addr+uint32(len(line)), 0)
	case 9: // sbrk
		old := s.heapBreak
		st.SetGPR(regV0, old)
		s.heapBreak += st.GPR(regA0)
	case 10: // exit
		st.Terminate(0)
	case 11: // print_char
		s.print(string(rune(st.GPR(regA0))))
	case 12: // read_char
		b, _ := s.stdin.ReadByte()
		st.SetGPR(regV0, uint32(b))
	case 13: // open
		name, err := readCString(mem, st.GPR(regA0))
		if err != nil {
			return err
		}
		fd, err := s.files.Open(name, int(st.GPR(regA1)))
		if err != nil {
			st.SetGPR(regV0, ^uint32(0))
			return nil
		}
		st.SetGPR(regV0, uint32(fd))
	case 14: // read
		fd, addr, n := int(st.GPR(regA0)), st.GPR(regA1), int(st.GPR(regA2))
		buf := make([]byte, n)
		count, err := s.files.Read(fd, buf)
		if err != nil {
			st.SetGPR(regV0, ^uint32(0))
			return nil
		}
		for i := 0; i < count; i++ {
			if err := mem.WriteByte(addr+uint32(i), buf[i]); err != nil {
				return err
			}
		}
		st.SetGPR(regV0, uint32(count))
	case 15: // write
		fd, addr, n := int(st.GPR(regA0)), st.GPR(regA1), int(st.GPR(regA2))
		buf := make([]byte, n)
		for i := 0; i < n; i++ {
			b, err := mem.ReadByte(addr + uint32(i))
			if err != nil {
				return err
			}
			buf[i] = b
		}
		count, err := s.files.Write(fd, buf)
		if err != nil {
			st.SetGPR(regV0, ^uint32(0))
			return nil
		}
		st.SetGPR(regV0, uint32(count))
	case 16: // close
		_ = s.files.Close(int(st.GPR(regA0)))
	case 17: // exit2
		st.Terminate(int32(st.GPR(regA0)))
	case 34: // print_hex
		s.print(fmt.Sprintf("%x", st.GPR(regA0)))
	case 35: // print_bin
		s.print(fmt.Sprintf("%b", st.GPR(regA0)))
	case 36: // print_uint
		s.print(fmt.Sprintf("%d", st.GPR(regA0)))
	case 40: // rand_seed
		_ = s.rand[0].WriteWord(0, st.GPR(regA1))
	case 41: // rand_int
		v, _ := s.rand[0].ReadWord(0)
		st.SetGPR(regV0, v)
	case 30, 31, 32, 33: // time/sleep/midi stubs: no deterministic wall clock in headless mode
		st.SetGPR(regV0, 0)
		st.SetGPR(regV1, 0)
	case 48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59: // dialog stubs
		st.SetGPR(regV0, 0)
	default:
		return &SyscallError{Code: code}
	}
	return nil
}

func (s *Syscalls) print(str string) {
	for i := 0; i < len(str); i++ {
		_ = s.term.WriteByte(0, str[i])
	}
}

func (s *Syscalls) readLine() (string, error) {
	line, err := s.stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func readCString(mem syscallMem, addr uint32) (string, error) {
	var buf []byte
	for {
		b, err := mem.ReadByte(addr)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
		addr++
	}
	return string(buf), nil
}

package assemble

// instrForm names the operand layout a real (non-pseudo) mnemonic takes.
type instrForm int

const (
	formR instrForm = iota // rd, rs, rt
	formRShift              // rd, rt, shamt
	formRJR                 // rs only (jr)
	formRJALR               // rd, rs (jalr)
	formRMD                 // rs, rt (mult/div, no dest)
	formRMove               // rd (mfhi/mflo) or rs (mthi/mtlo)
	formI                   // rt, rs, imm
	formILoad               // rt, imm(rs)
	formIBranch             // rs, rt, label
	formIBranch1            // rs, label (blez/bgtz/bltz/bgez)
	formJ                   // label
	formSyscall             // no operands
	formFR                  // COP1 fd, fs, ft
	formFR2                 // COP1 fd, fs
	formFCompare            // COP1 fs, ft (writes condition flag)
	formFBranch             // COP1 branch on condition flag
	formFMove               // mfc1/mtc1: rt, fs
)

type instrInfo struct {
	op     uint32
	funct  uint32
	fmt    uint32 // COP1 fmt field, or regimm rt field
	form   instrForm
	isCop1 bool
}

// instrTable maps every real MIPS-I mnemonic this assembler accepts to its
// encoding recipe. Pseudo-ops are expanded before lookup happens here.
var instrTable = map[string]instrInfo{
	"add":  {op: 0, funct: 0x20, form: formR},
	"addu": {op: 0, funct: 0x21, form: formR},
	"sub":  {op: 0, funct: 0x22, form: formR},
	"subu": {op: 0, funct: 0x23, form: formR},
	"and":  {op: 0, funct: 0x24, form: formR},
	"or":   {op: 0, funct: 0x25, form: formR},
	"xor":  {op: 0, funct: 0x26, form: formR},
	"nor":  {op: 0, funct: 0x27, form: formR},
	"slt":  {op: 0, funct: 0x2a, form: formR},
	"sltu": {op: 0, funct: 0x2b, form: formR},

	"sllv": {op: 0, funct: 0x04, form: formR},
	"srlv": {op: 0, funct: 0x06, form: formR},
	"srav": {op: 0, funct: 0x07, form: formR},

	"sll": {op: 0, funct: 0x00, form: formRShift},
	"srl": {op: 0, funct: 0x02, form: formRShift},
	"sra": {op: 0, funct: 0x03, form: formRShift},

	"jr":   {op: 0, funct: 0x08, form: formRJR},
	"jalr": {op: 0, funct: 0x09, form: formRJALR},

	"mult":  {op: 0, funct: 0x18, form: formRMD},
	"multu": {op: 0, funct: 0x19, form: formRMD},
	"div":   {op: 0, funct: 0x1a, form: formRMD},
	"divu":  {op: 0, funct: 0x1b, form: formRMD},

	"mfhi": {op: 0, funct: 0x10, form: formRMove},
	"mthi": {op: 0, funct: 0x11, form: formRMove},
	"mflo": {op: 0, funct: 0x12, form: formRMove},
	"mtlo": {op: 0, funct: 0x13, form: formRMove},

	"syscall": {op: 0, funct: 0x0c, form: formSyscall},
	"break":   {op: 0, funct: 0x0d, form: formSyscall},

	"addi":  {op: 0x08, form: formI},
	"addiu": {op: 0x09, form: formI},
	"andi":  {op: 0x0c, form: formI},
	"ori":   {op: 0x0d, form: formI},
	"xori":  {op: 0x0e, form: formI},
	"slti":  {op: 0x0a, form: formI},
	"sltiu": {op: 0x0b, form: formI},
	"lui":   {op: 0x0f, form: formI},

	"lb":  {op: 0x20, form: formILoad},
	"lbu": {op: 0x24, form: formILoad},
	"lh":  {op: 0x21, form: formILoad},
	"lhu": {op: 0x25, form: formILoad},
	"lw":  {op: 0x23, form: formILoad},
	"lwc1": {op: 0x31, form: formILoad, isCop1: true},
	"sb":  {op: 0x28, form: formILoad},
	"sh":  {op: 0x29, form: formILoad},
	"sw":  {op: 0x2b, form: formILoad},
	"swc1": {op: 0x39, form: formILoad, isCop1: true},

	"beq":  {op: 0x04, form: formIBranch},
	"bne":  {op: 0x05, form: formIBranch},
	"blez": {op: 0x06, form: formIBranch1},
	"bgtz": {op: 0x07, form: formIBranch1},
	"bltz":   {op: 0x01, fmt: 0x00, form: formIBranch1},
	"bgez":   {op: 0x01, fmt: 0x01, form: formIBranch1},
	"bgezal": {op: 0x01, fmt: 0x11, form: formIBranch1},
	"bltzal": {op: 0x01, fmt: 0x10, form: formIBranch1},

	"j":   {op: 0x02, form: formJ},
	"jal": {op: 0x03, form: formJ},

	"add.s":  {op: 0x11, fmt: 16, funct: 0x00, form: formFR, isCop1: true},
	"sub.s":  {op: 0x11, fmt: 16, funct: 0x01, form: formFR, isCop1: true},
	"mul.s":  {op: 0x11, fmt: 16, funct: 0x02, form: formFR, isCop1: true},
	"div.s":  {op: 0x11, fmt: 16, funct: 0x03, form: formFR, isCop1: true},
	"mov.s":  {op: 0x11, fmt: 16, funct: 0x06, form: formFR2, isCop1: true},
	"add.d":  {op: 0x11, fmt: 17, funct: 0x00, form: formFR, isCop1: true},
	"sub.d":  {op: 0x11, fmt: 17, funct: 0x01, form: formFR, isCop1: true},
	"mul.d":  {op: 0x11, fmt: 17, funct: 0x02, form: formFR, isCop1: true},
	"div.d":  {op: 0x11, fmt: 17, funct: 0x03, form: formFR, isCop1: true},
	"mov.d":  {op: 0x11, fmt: 17, funct: 0x06, form: formFR2, isCop1: true},
	"cvt.s.w": {op: 0x11, fmt: 20, funct: 0x20, form: formFR2, isCop1: true},
	"cvt.w.s": {op: 0x11, fmt: 16, funct: 0x24, form: formFR2, isCop1: true},
	"cvt.s.d": {op: 0x11, fmt: 17, funct: 0x20, form: formFR2, isCop1: true},
	"cvt.d.s": {op: 0x11, fmt: 16, funct: 0x21, form: formFR2, isCop1: true},
	"c.eq.s": {op: 0x11, fmt: 16, funct: 0x32, form: formFCompare, isCop1: true},
	"c.lt.s": {op: 0x11, fmt: 16, funct: 0x3c, form: formFCompare, isCop1: true},
	"c.le.s": {op: 0x11, fmt: 16, funct: 0x3e, form: formFCompare, isCop1: true},
	"c.eq.d": {op: 0x11, fmt: 17, funct: 0x32, form: formFCompare, isCop1: true},
	"c.lt.d": {op: 0x11, fmt: 17, funct: 0x3c, form: formFCompare, isCop1: true},
	"c.le.d": {op: 0x11, fmt: 17, funct: 0x3e, form: formFCompare, isCop1: true},

	"bc1t": {op: 0x11, fmt: 0x08, form: formFBranch},
	"bc1f": {op: 0x11, fmt: 0x08, form: formFBranch},

	"mfc1": {op: 0x11, fmt: 0x00, form: formFMove, isCop1: true},
	"mtc1": {op: 0x11, fmt: 0x04, form: formFMove, isCop1: true},
}

func encodeR(op, rs, rt, rd, shamt, funct uint32) uint32 {
	return op<<26 | (rs&0x1f)<<21 | (rt&0x1f)<<16 | (rd&0x1f)<<11 | (shamt&0x1f)<<6 | funct&0x3f
}

func encodeI(op, rs, rt uint32, imm int32) uint32 {
	return op<<26 | (rs&0x1f)<<21 | (rt&0x1f)<<16 | uint32(imm)&0xffff
}

func encodeJ(op, target uint32) uint32 {
	return op<<26 | (target>>2)&0x03ffffff
}

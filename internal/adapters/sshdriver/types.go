// Package sshdriver implements the SSH scanner/sniffer producer (C3): it
// pilots a RouterOS wireless scan or sniffer session over an interactive SSH
// shell and turns the redrawn pseudo-terminal tables into domain.NetworkRecord
// samples, the same shape C2's TZSP receiver produces.
package sshdriver

import "github.com/lcalzada-xor/wmap/internal/adapters/sshdriver/rowparser"

// Ret classifies why a session reached StateClosed, mirroring the original's
// mt_ssh_ret_t.
type Ret int

const (
	RetInvalid Ret = iota
	RetClosed
	RetCanceled
	RetErrNew
	RetErrSetOptions
	RetErrConnect
	RetErrVerify
	RetErrAuth
	RetErrChannelNew
	RetErrChannelOpen
	RetErrPTYRequest
	RetErrShellRequest
	RetErrInterface
)

func (r Ret) String() string {
	switch r {
	case RetClosed:
		return "closed"
	case RetCanceled:
		return "canceled"
	case RetErrNew:
		return "err_new"
	case RetErrSetOptions:
		return "err_set_options"
	case RetErrConnect:
		return "err_connect"
	case RetErrVerify:
		return "err_verify"
	case RetErrAuth:
		return "err_auth"
	case RetErrChannelNew:
		return "err_channel_new"
	case RetErrChannelOpen:
		return "err_channel_open"
	case RetErrPTYRequest:
		return "err_pty_request"
	case RetErrShellRequest:
		return "err_shell_request"
	case RetErrInterface:
		return "err_interface"
	default:
		return "invalid"
	}
}

// MsgType tags what an emitted message carries, mirroring mt_ssh_msg_type_t.
type MsgType int

const (
	MsgInfo MsgType = iota
	MsgNet
	MsgSnf
)

// InfoType classifies an MsgInfo message, mirroring mt_ssh_info_type_t.
type InfoType int

const (
	InfoConnecting InfoType = iota
	InfoAuthenticating
	InfoAuthVerify
	InfoConnected
	InfoIdentity
	InfoInterface
	InfoScanlist
	InfoFailure
	InfoHeartbeat
	InfoScannerStart
	InfoScannerStop
	InfoSnifferStart
	InfoSnifferStop
)

// CmdType is a command enqueued on the driver's command channel, mirroring
// mt_ssh_cmd_type_t.
type CmdType int

const (
	CmdAuth CmdType = iota
	CmdScanlist
	CmdStop
	CmdScan
	CmdSniff
)

// Mode selects whether the driver pilots the scan table or the sniffer.
type Mode int

const (
	ModeNone Mode = iota
	ModeScanner
	ModeSniffer
)

// State is the driver's connection lifecycle, following spec's
// NEW -> CONNECTING -> AUTHENTICATING -> [AUTH_VERIFY?] -> CONNECTED ->
// IDENTIFYING -> INTERFACE_CHECK -> SCANLIST_CHECK -> READY ->
// {SCANNING|SNIFFING|IDLE} -> CLOSED progression.
type State int

const (
	StateNew State = iota
	StateConnecting
	StateAuthenticating
	StateAuthVerify
	StateConnected
	StateIdentifying
	StateInterfaceCheck
	StateScanlistCheck
	StateReady
	StateScanning
	StateSniffing
	StateIdle
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthVerify:
		return "auth_verify"
	case StateConnected:
		return "connected"
	case StateIdentifying:
		return "identifying"
	case StateInterfaceCheck:
		return "interface_check"
	case StateScanlistCheck:
		return "scanlist_check"
	case StateReady:
		return "ready"
	case StateScanning:
		return "scanning"
	case StateSniffing:
		return "sniffing"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return "new"
	}
}

// Command is one entry on the driver's command channel: a request to
// authenticate, push a scan-list, stop the current operation, or start
// scanning/sniffing an interface. Data carries the command's single string
// argument, e.g. the password for CmdAuth or the comma-delimited channel
// list for CmdScanlist.
type Command struct {
	Type CmdType
	Data string
}

// SnifferStats is one sniffer-summary snapshot, mirroring mt_ssh_snf_t. It is
// an alias of rowparser.SnifferStats so the row parser and the driver share
// one definition.
type SnifferStats = rowparser.SnifferStats

// Info is one MsgInfo event: a lifecycle notification with a free-form data
// string (identity name, interface name, failure reason, ...).
type Info struct {
	Type InfoType
	Data string
}

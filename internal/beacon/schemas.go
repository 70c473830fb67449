package beacon

import (
	"fmt"
	"sort"
)

// Subsystem blocks, in downlink order. Offsets are assigned when the blocks
// are laid out into a frame schema.
var (
	epsBlock = []Field{
		u16("eps_output_current_bcr"),
		u16("eps_output_voltage_bcr"),
		u16("eps_output_current_12v"),
		u16("eps_output_voltage_12v"),
		u16("eps_output_current_bat"),
		u16("eps_output_voltage_bat"),
		u16("eps_output_current_5v"),
		u16("eps_output_voltage_5v"),
		u16("eps_output_current_3v3"),
		u16("eps_output_voltage_3v3"),
		u16("eps_temperature_motherboard"),
		u16("eps_temperature_daughterboard"),
		u16("eps_currentdraw_3v3"),
		u16("eps_currentdraw_5v"),
		u16("eps_switchbus_voltage_motor"),
		u16("eps_switchbus_current_motor"),
		u16("eps_switchbus_voltage_hstx"),
		u16("eps_switchbus_current_hstx"),
		u16("eps_switchbus_voltage_camera"),
		u16("eps_switchbus_current_camera"),
		u16("eps_switchbus_voltage_adac5"),
		u16("eps_switchbus_current_adac5"),
		u16("eps_switchbus_voltage_vlf"),
		u16("eps_switchbus_current_vlf"),
		u16("eps_switchbus_voltage_ants"),
		u16("eps_switchbus_current_ants"),
		u16("eps_switchbus_voltage_adac3"),
		u16("eps_switchbus_current_adac3"),
		u16("eps_switchbus_voltage_gps"),
		u16("eps_switchbus_current_gps"),
		u16("eps_bcr1_temperature_a"),
		u16("eps_bcr1_temperature_b"),
		u16("eps_bcr1_voltage"),
		u16("eps_bcr1_current"),
		u16("eps_bcr2_temperature_a"),
		u16("eps_bcr2_temperature_b"),
		u16("eps_bcr2_voltage"),
		u16("eps_bcr2_current_a"),
		u16("eps_bcr2_current_b"),
		u16("eps_bcr3_temperature_a"),
		u16("eps_bcr3_temperature_b"),
		u16("eps_bcr3_voltage"),
		u16("eps_bcr3_current_a"),
		u16("eps_bcr3_current_b"),
		u16("eps_bcr4_voltage"),
		u16("eps_bcr4_current_a"),
		u16("eps_bcr4_current_b"),
		u16("eps_bcr6_voltage"),
		u16("eps_bcr6_current_a"),
		u16("eps_bcr6_current_b"),
		flags("eps_pdmstate", 2,
			bit("eps_pdmstate_vlf_12v", 1),
			bit("eps_pdmstate_stx_bat", 3),
			bit("eps_pdmstate_camera", 5),
			bit("eps_pdmstate_adac_5v", 6),
			bit("eps_pdmstate_vlf_5v", 7),
			bit("eps_pdmstate_ants", 8),
			bit("eps_pdmstate_adac_3v3", 9),
			bit("eps_pdmstate_gps_3v3", 10),
		),
		u16("eps_reset_brownout_motherboard"),
		u16("eps_reset_brownout_daughterboard"),
		u16("eps_reset_software_motherboard"),
		u16("eps_reset_software_daughterboard"),
		u16("eps_reset_manual_motherboard"),
		u16("eps_reset_manual_daughterboard"),
		u16("eps_reset_watchdog"),
	}

	batteryBlock = []Field{
		u16("battery_voltage"),
		u16("battery_current"),
		u16("battery_temperature_motherboard"),
		u16("battery_temperature_daughterboard_1"),
		u16("battery_temperature_daughterboard_2"),
		u16("battery_temperature_daughterboard_3"),
		u16("battery_temperature_daughterboard_4"),
		flags("battery_heaterstatus", 1,
			bit("battery_heaterstatus_1", 0),
			bit("battery_heaterstatus_2", 1),
			bit("battery_heaterstatus_3", 2),
			bit("battery_heaterstatus_4", 3),
		),
	}

	vutrxBlock = []Field{
		u8("vutrx_rx_failedpackage"),
		u16("vutrx_rx_crcfailedpackage"),
		u16("vutrx_rx_packagecounter"),
		flags("vutrx_frequentlock", 1,
			bit("vutrx_rx_frequentlock", 0),
			bit("vutrx_tx_frequentlock", 1),
		),
		u16("vutrx_rssi"),
		i8("vutrx_smps_temperature"),
		i8("vutrx_poweramplifier_temperature"),
		u8("vutrx_poweramplifier_power"),
		u16("vutrx_frequencyoffset_tx"),
		u16("vutrx_frequencyoffset_rx"),
		flags("vutrx_dtmf", 1,
			Bits{Name: "vutrx_dtmf_tone", Shift: 0, Width: 4},
			Bits{Name: "vutrx_dtmf_counter", Shift: 4, Width: 4},
		),
		i16("vutrx_current_3v3"),
		i16("vutrx_current_5v"),
		i16("vutrx_voltage_3v3"),
		i16("vutrx_voltage_5v"),
		u16("vutrx_poweramplifier_forwardpower"),
		u16("vutrx_poweramplifier_reversepower"),
	}

	antsBlock = []Field{
		u16("ants_temperature"),
		flags("ants_status", 2,
			bit("ants_status_armed", 0),
			bit("ants_status_deploymentactive_4", 1),
			bit("ants_status_stopcriteria_4", 2),
			bit("ants_status_deploymentflag_4", 3),
			bit("ants_status_independentburn", 4),
			bit("ants_status_deploymentactive_3", 5),
			bit("ants_status_stopcriteria_3", 6),
			bit("ants_status_deploymentflag_3", 7),
			bit("ants_status_ignoreswitches", 8),
			bit("ants_status_deploymentactive_2", 9),
			bit("ants_status_stopcriteria_2", 10),
			bit("ants_status_deploymentflag_2", 11),
			bit("ants_status_deploymentactive_1", 13),
			bit("ants_status_stopcriteria_1", 14),
			bit("ants_status_deploymentflag_1", 15),
		),
	}

	stxBlock = []Field{
		u16("stx_voltage_battery"),
		u16("stx_current_battery"),
		u16("stx_voltage_poweramplifier"),
		u16("stx_current_poweramplifier"),
		i16("stx_temperature_top"),
		i16("stx_temperature_bottom"),
		u8("stx_temperature_poweramplifier"),
		u8("stx_synth_offset"),
		u16("stx_buffer_overrun"),
		u16("stx_buffer_underrun"),
		flags("stx_poweramplifier_status", 1,
			bit("stx_poweramplifier_status_frequencylock", 0),
			bit("stx_poweramplifier_status_powergood", 1),
		),
		u16("stx_rf_poweroutput"),
		raw("stx_reserved", 1),
	}
)

func concat(blocks ...[]Field) []Field {
	var out []Field
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

// SchemaA is the acknowledgement beacon carrying the mission greeting text.
var SchemaA = Schema{
	Name:         "ack",
	Length:       46,
	MsgType:      0,
	MessageNum:   1,
	MessageTotal: 1,
	Fields: layout(0,
		raw("message", 44),
		raw("ack_reserved", 2),
	),
}

// SchemaB is the first flight-mode beacon: EPS, battery, VUTRX and antenna.
var SchemaB = Schema{
	Name:         "flight1",
	Length:       163,
	MsgType:      3,
	MessageNum:   2,
	MessageTotal: 2,
	Fields:       layout(0, concat(epsBlock, batteryBlock, vutrxBlock, antsBlock)...),
}

// SchemaC extends SchemaB with the S-band transmitter block.
var SchemaC = Schema{
	Name:         "flight2",
	Length:       185,
	MsgType:      4,
	MessageNum:   2,
	MessageTotal: 2,
	Fields:       layout(0, concat(epsBlock, batteryBlock, vutrxBlock, antsBlock, stxBlock)...),
}

var byLength map[int]FrameType

func init() {
	byLength = make(map[int]FrameType, 3)
	for _, ft := range []FrameType{FrameAck, FrameFlight1, FrameFlight2} {
		s := ft.Schema()
		if err := s.Validate(); err != nil {
			panic(err)
		}
		if prev, dup := byLength[s.Length]; dup {
			panic(fmt.Sprintf("beacon: schemas %s and %s share length %d", prev, ft, s.Length))
		}
		byLength[s.Length] = ft
	}
}

// FrameLengths lists the recognized telemetry frame lengths in ascending order.
func FrameLengths() []int {
	out := make([]int, 0, len(byLength))
	for n := range byLength {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

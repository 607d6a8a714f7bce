package device

type kindSpec struct {
	kind   string
	fields []string
}

// catalog lists the fixed-field device kinds. Field identifiers are
// snake_case; the default display name is their PascalCase form.
var catalog = []kindSpec{
	{"button", []string{"button_state", "button_on_state_value", "button_off_state_value", "button_style"}},
	{"cargo_beam", []string{"cargo_beam_on_state", "cargo_beam_search_length"}},
	{"cargo_lock_frame", []string{"cargo_frame_state"}},
	{"chip_socket", []string{"button_state", "button_on_state_value", "button_off_state_value", "button_style"}},
	{"fixed_mount", []string{"current_state", "on_state", "off_state", "button_style"}},
	{"flight_control_unit", []string{
		"fcu_mfc_io",
		"fcu_general_multiplier",
		"fcu_forward",
		"fcu_backward",
		"fcu_rotational_pitch",
		"fcu_rotational_yaw",
		"fcu_rotational_roll",
		"fcu_up_down",
		"fcu_right_left",
		"fcu_fwd_bwd_pitch",
		"fcu_fwd_bwd_yaw",
		"fcu_fwd_bwd_roll",
	}},
	{"generator", []string{
		"fuel_chamber_fuel",
		"fuel_chamber_max_fuel",
		"fuel_chamber_unit_rate_limit",
		"fuel_chamber_unit_rate",
		"generator_unit_rate_limit",
		"generator_unit_rate",
		"stored_coolant",
		"max_coolant",
		"cooler_unit_rate_limit",
		"cooler_unit_rate",
		"socket_unit_rate_limit",
		"socket_unit_rate",
	}},
	{"hinge", []string{"door_open_state", "door_current_state", "end_rotation", "start_rotation", "target_velocity"}},
	{"information_screen", []string{"info_screen_content"}},
	{"lamp", []string{"lamp_on", "lamp_lumens", "lamp_color_hue", "lamp_color_saturation", "lamp_color_value", "lamp_range"}},
	{"lever", []string{
		"lever_state",
		"lever_min_output",
		"lever_max_output",
		"lever_center_output",
		"lever_center_dead_zone",
		"lever_centering_speed",
		"lever_binds_move_speed",
	}},
	{"main_flight_computer", append([]string{"fcu_mfc_io1", "fcu_mfc_io2"}, thrusterPowerLevels...)},
	{"mining_laser", []string{"mining_laser_on", "mining_laser_beam_length"}},
	{"modular_display", []string{"panel_value"}},
	{"radio_receiver", []string{
		"message",
		"signal_strength",
		"listen_angle",
		"target_message",
		"target_frequency",
		"frequency",
		"receiver_pitch",
		"receiver_current_pitch",
		"max_rotation",
		"min_rotation",
		"target_velocity",
	}},
	{"radio_transmitter", []string{"transmit_message", "transmit_range", "frequency"}},
	{"rail_relay", []string{"is_enabled"}},
	{"rail_sensor_strip", []string{"rail_sensor_output", "rail_sensor_delta", "rail_sensor_mover_filter"}},
	{"rail_trigger", []string{"rail_trigger_output", "rail_trigger_value", "rail_trigger_read_mover"}},
	{"range_finder", []string{"range_finder_on_state", "range_finder_search_length", "range_finder_distance"}},
	{"relay", []string{"is_enabled"}},
	{"tank", []string{"gas_container_stored_resource", "gas_container_max_resource", "is_open_id", "flow_id"}},
	{"thruster", []string{"thruster_state", "thruster_current_thrust"}},
	{"turntable", []string{"turret_rotation", "turret_current_rotation", "max_rotation", "min_rotation", "target_velocity"}},
}

var thrusterPowerLevels = []string{
	"thruster_power_level01",
	"thruster_power_level02",
	"thruster_power_level03",
	"thruster_power_level04",
	"thruster_power_level05",
	"thruster_power_level06",
	"thruster_power_level07",
	"thruster_power_level08",
	"thruster_power_level09",
	"thruster_power_level10",
	"thruster_power_level11",
	"thruster_power_level12",
	"thruster_power_level13",
	"thruster_power_level14",
	"thruster_power_level15",
	"thruster_power_level16",
	"thruster_power_level17",
	"thruster_power_level18",
	"thruster_power_level19",
	"thruster_power_level20",
	"thruster_power_level21",
	"thruster_power_level22",
	"thruster_power_level23",
	"thruster_power_level24",
	"thruster_power_level25",
	"thruster_power_level26",
	"thruster_power_level27",
	"thruster_power_level28",
	"thruster_power_level29",
	"thruster_power_level30",
	"thruster_power_level31",
	"thruster_power_level32",
	"thruster_power_level33",
	"thruster_power_level34",
	"thruster_power_level35",
	"thruster_power_level36",
	"thruster_power_level37",
	"thruster_power_level38",
	"thruster_power_level39",
	"thruster_power_level40",
	"thruster_power_level41",
	"thruster_power_level42",
	"thruster_power_level43",
	"thruster_power_level44",
	"thruster_power_level45",
	"thruster_power_level46",
	"thruster_power_level47",
	"thruster_power_level48",
	"thruster_power_level49",
	"thruster_power_level50",
}

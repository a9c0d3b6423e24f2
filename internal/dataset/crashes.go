package dataset

func text(name string) Column { return Column{Name: name, Type: Text} }
func integer(name string) Column { return Column{Name: name, Type: Integer} }
func bigint(name string) Column { return Column{Name: name, Type: BigInt} }
func double(name string) Column { return Column{Name: name, Type: Double} }
func boolean(name string) Column { return Column{Name: name, Type: Boolean} }
func timestamp(name string) Column { return Column{Name: name, Type: Timestamp} }

// NYCCrashes is the NYC Open Data "Motor Vehicle Collisions - Crashes" file.
func NYCCrashes() Dataset {
	return Dataset{
		Name:         "nyc_crashes",
		Table:        "nyc_crashes",
		StagingTable: "nyc_crashes_staging",
		Key:          "collision_id",
		Conflict:     Overwrite,
		Geometry:     &Geometry{Column: "location", Latitude: "latitude", Longitude: "longitude"},
		Columns: []Column{
			bigint("collision_id"),
			{Name: "crash_date", Type: Timestamp, Layout: "MM/DD/YYYY"},
			text("crash_time"),
			text("borough"),
			text("zip_code"),
			double("latitude"),
			double("longitude"),
			text("on_street_name"),
			text("off_street_name"),
			text("cross_street_name"),
			integer("number_of_persons_injured"),
			integer("number_of_persons_killed"),
			integer("number_of_pedestrians_injured"),
			integer("number_of_pedestrians_killed"),
			integer("number_of_cyclist_injured"),
			integer("number_of_cyclist_killed"),
			integer("number_of_motorist_injured"),
			integer("number_of_motorist_killed"),
			text("contributing_factor_vehicle_1"),
			text("contributing_factor_vehicle_2"),
			text("contributing_factor_vehicle_3"),
			text("contributing_factor_vehicle_4"),
			text("contributing_factor_vehicle_5"),
			{Name: "vehicle_type_code1", Source: "vehicle_type_code_1", Type: Text},
			{Name: "vehicle_type_code2", Source: "vehicle_type_code_2", Type: Text},
			{Name: "vehicle_type_code3", Source: "vehicle_type_code_3", Type: Text},
			{Name: "vehicle_type_code4", Source: "vehicle_type_code_4", Type: Text},
			{Name: "vehicle_type_code5", Source: "vehicle_type_code_5", Type: Text},
		},
	}
}

// CACrashes is the California CHP crash report file.
func CACrashes() Dataset {
	return Dataset{
		Name:         "ca_crashes",
		Table:        "ca_crashes",
		StagingTable: "ca_crashes_staging",
		Key:          "collision_id",
		Conflict:     Overwrite,
		Geometry:     &Geometry{Column: "location", Latitude: "latitude", Longitude: "longitude"},
		Columns: []Column{
			bigint("collision_id"),
			text("report_number"),
			integer("report_version"),
			boolean("is_preliminary"),
			text("ncic_code"),
			timestamp("crash_date_time"),
			text("crash_time_description"),
			text("beat"),
			integer("city_id"),
			text("city_code"),
			text("city_name"),
			text("county_code"),
			boolean("city_is_active"),
			boolean("city_is_incorporated"),
			text("collision_type_code"),
			text("collision_type_description"),
			text("collision_type_other_desc"),
			text("day_of_week"),
			text("dispatch_notified"),
			boolean("has_photographs"),
			text("hit_run"),
			boolean("is_attachments_mailed"),
			boolean("is_deleted"),
			boolean("is_highway_related"),
			boolean("is_tow_away"),
			text("judicial_district"),
			text("motor_vehicle_involved_with_code"),
			text("motor_vehicle_involved_with_desc"),
			text("motor_vehicle_involved_with_other_desc"),
			integer("number_injured"),
			integer("number_killed"),
			text("weather_1"),
			text("weather_2"),
			text("road_condition_1"),
			text("road_condition_2"),
			text("special_condition"),
			text("lighting_code"),
			text("lighting_description"),
			double("latitude"),
			double("longitude"),
			text("milepost_direction"),
			text("milepost_distance"),
			text("milepost_marker"),
			text("milepost_unit_of_measure"),
			text("pedestrian_action_code"),
			text("pedestrian_action_desc"),
			timestamp("prepared_date"),
			text("primary_collision_factor_code"),
			text("primary_collision_factor_violation"),
			boolean("primary_collision_factor_is_cited"),
			integer("primary_collision_party_number"),
			text("primary_road"),
			text("reporting_district"),
			text("reporting_district_code"),
			timestamp("reviewed_date"),
			text("roadway_surface_code"),
			text("secondary_direction"),
			text("secondary_distance"),
			text("secondary_road"),
			text("secondary_unit_of_measure"),
			text("sketch_desc"),
			text("traffic_control_device_code"),
			timestamp("created_date"),
			timestamp("modified_date"),
			boolean("is_county_road"),
			boolean("is_freeway"),
			text("chp555_version"),
			boolean("is_additional_object_struck"),
			timestamp("notification_date"),
			text("notification_time_description"),
			boolean("has_digital_media_files"),
			text("evidence_number"),
			boolean("is_location_refer_to_narrative"),
			boolean("is_aoi_one_same_as_location"),
		},
	}
}

// CAInjuredWitnessPassengers is the per-person detail file of the CHP data.
// Rows are keyed by their own id and only ever inserted once.
func CAInjuredWitnessPassengers() Dataset {
	return Dataset{
		Name:         "ca_injuredwitnesspassengers",
		Table:        "ca_injuredwitnesspassengers",
		StagingTable: "ca_injuredwitnesspassengers_staging",
		Key:          "injured_wit_pass_id",
		Conflict:     Ignore,
		Indexes:      []string{"collision_id"},
		Columns: []Column{
			bigint("injured_wit_pass_id"),
			bigint("collision_id"),
			integer("stated_age"),
			text("gender"),
			text("gender_desc"),
			text("race"),
			text("race_desc"),
			boolean("is_witness_only"),
			boolean("is_passenger_only"),
			text("extent_of_injury_code"),
			text("injured_person_type"),
			text("seat_position"),
			text("seat_position_other"),
			text("air_bag_code"),
			text("air_bag_description"),
			text("safety_equipment_code"),
			text("safety_equipment_description"),
			text("ejected"),
			boolean("is_vovc_notified"),
			integer("party_number"),
			text("seat_position_description"),
		},
	}
}

// CAParties is the per-party detail file of the CHP data.
func CAParties() Dataset {
	return Dataset{
		Name:         "ca_parties",
		Table:        "ca_parties",
		StagingTable: "ca_parties_staging",
		Key:          "party_id",
		Conflict:     Ignore,
		Indexes:      []string{"collision_id"},
		Columns: []Column{
			bigint("party_id"),
			bigint("collision_id"),
			integer("party_number"),
			text("party_type"),
			boolean("is_at_fault"),
			boolean("is_on_duty_emergency_vehicle"),
			boolean("is_hit_and_run"),
			text("airbag_code"),
			text("airbag_description"),
			text("safety_equipment_code"),
			text("safety_equipment_description"),
			text("special_information"),
			text("other_associate_factor"),
			text("inattention"),
			text("direction_of_travel"),
			text("street_or_highway_name"),
			integer("speed_limit"),
			text("movement_prec_coll_code"),
			text("movement_prec_coll_description"),
			text("sobriety_drug_physical_code1"),
			text("sobriety_drug_physical_description1"),
			text("sobriety_drug_physical_code2"),
			text("sobriety_drug_physical_description2"),
			text("gender_code"),
			text("gender_description"),
			integer("stated_age"),
			text("driver_license_class"),
			text("driver_license_state_code"),
			text("race_code"),
			text("race_desc"),
			integer("vehicle1_type_id"),
			text("vehicle1_type_desc"),
			integer("vehicle1_year"),
			text("vehicle1_make"),
			text("vehicle1_model"),
			text("vehicle1_color"),
			boolean("v1_is_vehicle_towed"),
			integer("vehicle2_type_id"),
			text("vehicle2_type_desc"),
			integer("vehicle2_year"),
			text("vehicle2_make"),
			text("vehicle2_model"),
			text("vehicle2_color"),
			boolean("v2_is_vehicle_towed"),
			text("lane"),
			integer("thru_lanes"),
			integer("total_lanes"),
			boolean("is_dre_conducted"),
		},
	}
}

package ip

import "testing"

func TestValidateIP(t *testing.T) {
	valid := []string{"192.168.1.1", "10.0.0.254", "fd00::1", " 172.16.0.1 "}
	for _, in := range valid {
		if err := ValidateIP(in); err != nil {
			t.Errorf("ValidateIP(%q) unexpected error: %v", in, err)
		}
	}

	invalid := []string{"", "256.1.1.1", "10.0.0", "not-an-ip", "10.0.0.1/24"}
	for _, in := range invalid {
		if err := ValidateIP(in); err == nil {
			t.Errorf("ValidateIP(%q) expected error", in)
		}
	}
}

func TestValidateCIDR(t *testing.T) {
	valid := []string{"192.168.0.0/16", "10.244.0.0/16", "10.96.0.0/12", "fd00::/64"}
	for _, in := range valid {
		if err := ValidateCIDR(in); err != nil {
			t.Errorf("ValidateCIDR(%q) unexpected error: %v", in, err)
		}
	}

	invalid := []string{"", "10.244.0.0", "10.244.0.1/16", "300.0.0.0/8", "10.0.0.0/33"}
	for _, in := range invalid {
		if err := ValidateCIDR(in); err == nil {
			t.Errorf("ValidateCIDR(%q) expected error", in)
		}
	}
}

func TestValidateEndpoint(t *testing.T) {
	valid := []string{"10.0.0.1:6443", "master.example.com:6443", "master-1", "10.0.0.1"}
	for _, in := range valid {
		if err := ValidateEndpoint(in); err != nil {
			t.Errorf("ValidateEndpoint(%q) unexpected error: %v", in, err)
		}
	}

	invalid := []string{"", "host:", "bad_host:6443", "host..name:6443"}
	for _, in := range invalid {
		if err := ValidateEndpoint(in); err == nil {
			t.Errorf("ValidateEndpoint(%q) expected error", in)
		}
	}
}

package extractor

const unitsPrompt = `You are an expert at extracting apartment listing data from HTML.

Extract all available rental units from this apartment building's website HTML.

For each unit, extract:
- unit_number: The unit/apartment number if shown
- floor: The floor number if shown
- beds: Number of bedrooms (0 for studio)
- baths: Number of bathrooms
- sqft: Square footage
- rent: Monthly rent in dollars (number only, no $ or commas)
- available_on: Move-in date if shown (YYYY-MM-DD format)
- floorplan_name: Name of the floor plan if shown
- view: View type if mentioned (city, water, park, etc.)

Return a JSON object with this structure:
{
  "units": [
    {"unit_number": "1204", "beds": 2, "baths": 2, "sqft": 1100, "rent": 3500, "available_on": "2024-02-01"},
    ...
  ],
  "total_available": 15,
  "move_in_specials": ["2 months free on 13+ month lease", ...]
}

If you cannot find units, return {"units": [], "total_available": 0}.
Only return valid JSON, no explanations.`

const amenitiesPrompt = `You are an expert at extracting apartment amenities from HTML.

Extract all building amenities from this apartment building's website HTML.

Categorize amenities into these categories:
- fitness: Gym, yoga studio, fitness center, etc.
- outdoor: Pool, rooftop, garden, BBQ, etc.
- social: Lounge, game room, movie theater, coworking, etc.
- pet: Pet spa, dog park, dog run, etc.
- security: Doorman, concierge, 24/7 security, etc.
- convenience: Parking, EV charging, bike storage, package room, etc.
- wellness: Spa, sauna, steam room, cold plunge, hot tub, etc.
- tech: Smart home, high-speed internet, etc.
- comfort: In-unit laundry, balcony, floor-to-ceiling windows, etc.

Return a JSON object with this structure:
{
  "amenities": [
    {"name": "Rooftop Pool", "category": "outdoor", "description": "50th floor infinity pool with city views"},
    {"name": "Golf Simulator", "category": "social"},
    {"name": "Pet Spa", "category": "pet"},
    ...
  ],
  "pet_policy": "Pets welcome, $500 deposit, 2 pet max",
  "parking_policy": "$150/month for covered parking"
}

Extract as many amenities as you can find. Be thorough.
Only return valid JSON, no explanations.`
